// Package sshconfig maintains the tool-owned Host blocks inside the
// user's SSH client config. A managed block is identified solely by its
// marker comment; everything else in the file is foreign content and is
// preserved byte for byte.
package sshconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// markerPrefix starts the comment line that claims a Host block.
const markerPrefix = "# rpod:managed"

const defaultUser = "root"

var hostLine = regexp.MustCompile(`^\s*Host\s+(.+)$`)

// Entry holds the connection parameters written into a managed block.
type Entry struct {
	Alias        string
	PodID        string
	HostName     string
	Port         int
	User         string
	IdentityFile string
}

// Manager rewrites managed blocks in one SSH config file.
type Manager struct {
	path string
	now  func() time.Time
}

// NewManager creates a manager for the config file at path.
func NewManager(path string) *Manager {
	return &Manager{path: path, now: time.Now}
}

// block is a Host stanza: [start, end) line indices, the host names on
// the Host line, and whether a marker claims it.
type block struct {
	start, end int
	hosts      []string
	managed    bool
}

// load returns the file as lines that keep their trailing newline, so
// joining them reproduces the file exactly.
func (m *Manager) load() ([]string, error) {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ssh config: %w", err)
	}
	lines := strings.SplitAfter(string(data), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}

func (m *Manager) write(lines []string) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return fmt.Errorf("create ssh config dir: %w", err)
	}
	if err := os.WriteFile(m.path, []byte(strings.Join(lines, "")), 0o600); err != nil {
		return fmt.Errorf("write ssh config: %w", err)
	}
	return nil
}

func parseBlocks(lines []string) []block {
	var blocks []block
	i := 0
	for i < len(lines) {
		match := hostLine.FindStringSubmatch(strings.TrimRight(lines[i], "\n"))
		if match == nil {
			i++
			continue
		}
		start := i
		i++
		for i < len(lines) && !hostLine.MatchString(strings.TrimRight(lines[i], "\n")) {
			i++
		}
		blk := block{start: start, end: i, hosts: strings.Fields(match[1])}
		for j := start + 1; j < i; j++ {
			if strings.HasPrefix(strings.TrimSpace(lines[j]), markerPrefix) {
				blk.managed = true
				break
			}
		}
		blocks = append(blocks, blk)
	}
	return blocks
}

func (e Entry) render(updated string) []string {
	user := e.User
	if user == "" {
		user = defaultUser
	}
	lines := []string{
		fmt.Sprintf("Host %s\n", e.Alias),
		fmt.Sprintf("    %s alias=%s pod_id=%s updated=%s\n", markerPrefix, e.Alias, e.PodID, updated),
		fmt.Sprintf("    HostName %s\n", e.HostName),
		fmt.Sprintf("    User %s\n", user),
		fmt.Sprintf("    Port %d\n", e.Port),
	}
	if e.IdentityFile != "" {
		lines = append(lines,
			"    IdentitiesOnly yes\n",
			fmt.Sprintf("    IdentityFile %s\n", e.IdentityFile),
		)
	}
	lines = append(lines, "    ForwardAgent yes\n")
	return lines
}

// Upsert writes the managed block for entry.Alias. An existing block
// for the alias is replaced in place so file order is stable; otherwise
// the block is appended. Applying the same entry twice produces the
// same directive lines, only the marker timestamp differs.
func (m *Manager) Upsert(entry Entry) error {
	lines, err := m.load()
	if err != nil {
		return err
	}

	updated := m.now().UTC().Format("2006-01-02T15:04:05Z")
	newBlock := entry.render(updated)

	for _, blk := range parseBlocks(lines) {
		// A markerless block is foreign even if it mentions the alias.
		if !blk.managed || !containsHost(blk.hosts, entry.Alias) {
			continue
		}
		replaced := append([]string{}, lines[:blk.start]...)
		replaced = append(replaced, newBlock...)
		replaced = append(replaced, lines[blk.end:]...)
		return m.write(replaced)
	}

	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) != "" {
		// Make sure the last foreign line keeps its newline before we
		// append a separator.
		if !strings.HasSuffix(lines[len(lines)-1], "\n") {
			lines[len(lines)-1] += "\n"
		}
		lines = append(lines, "\n")
	}
	lines = append(lines, newBlock...)
	return m.write(lines)
}

// Remove deletes the managed block for alias. Blocks without a marker
// are never touched even if they mention the alias. Returns whether a
// block was removed.
func (m *Manager) Remove(alias string) (bool, error) {
	return m.removeMatching(func(blk block) bool {
		return blk.managed && containsHost(blk.hosts, alias)
	})
}

// Reconcile deletes every managed block whose aliases are all absent
// from valid. Returns the number of blocks removed.
func (m *Manager) Reconcile(valid map[string]bool) (int, error) {
	count := 0
	removed, err := m.removeMatching(func(blk block) bool {
		if !blk.managed {
			return false
		}
		for _, h := range blk.hosts {
			if valid[h] {
				return false
			}
		}
		count++
		return true
	})
	if err != nil {
		return 0, err
	}
	if !removed {
		return 0, nil
	}
	return count, nil
}

func (m *Manager) removeMatching(match func(block) bool) (bool, error) {
	lines, err := m.load()
	if err != nil || len(lines) == 0 {
		return false, err
	}

	var kept []string
	cursor := 0
	removed := false
	for _, blk := range parseBlocks(lines) {
		if !match(blk) {
			continue
		}
		kept = append(kept, lines[cursor:blk.start]...)
		cursor = blk.end
		removed = true
	}
	if !removed {
		return false, nil
	}
	kept = append(kept, lines[cursor:]...)
	return true, m.write(kept)
}

// Get reads back the managed entry for alias, if one exists.
func (m *Manager) Get(alias string) (Entry, bool, error) {
	lines, err := m.load()
	if err != nil {
		return Entry{}, false, err
	}

	for _, blk := range parseBlocks(lines) {
		if !blk.managed || !containsHost(blk.hosts, alias) {
			continue
		}
		entry := Entry{Alias: alias, User: defaultUser}
		for j := blk.start + 1; j < blk.end; j++ {
			line := strings.TrimSpace(strings.TrimRight(lines[j], "\n"))
			switch {
			case strings.HasPrefix(line, markerPrefix):
				for _, field := range strings.Fields(line) {
					if v, ok := strings.CutPrefix(field, "pod_id="); ok {
						entry.PodID = v
					}
				}
			case strings.HasPrefix(line, "HostName "):
				entry.HostName = strings.TrimSpace(strings.TrimPrefix(line, "HostName "))
			case strings.HasPrefix(line, "Port "):
				if p, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Port "))); err == nil {
					entry.Port = p
				}
			case strings.HasPrefix(line, "User "):
				entry.User = strings.TrimSpace(strings.TrimPrefix(line, "User "))
			case strings.HasPrefix(line, "IdentityFile "):
				entry.IdentityFile = strings.TrimSpace(strings.TrimPrefix(line, "IdentityFile "))
			}
		}
		return entry, true, nil
	}
	return Entry{}, false, nil
}

// ListManaged returns all aliases that currently have a managed block.
func (m *Manager) ListManaged() ([]string, error) {
	lines, err := m.load()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var aliases []string
	for _, blk := range parseBlocks(lines) {
		if !blk.managed {
			continue
		}
		for _, h := range blk.hosts {
			if !seen[h] {
				seen[h] = true
				aliases = append(aliases, h)
			}
		}
	}
	return aliases, nil
}

func containsHost(hosts []string, alias string) bool {
	for _, h := range hosts {
		if h == alias {
			return true
		}
	}
	return false
}
