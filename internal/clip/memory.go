package clip

import (
	"context"
	"slices"
	"sync"
)

// Memory is an in-process clipboard. It backs tests and behaves like a real
// selection owner: every write replaces the previous content.
type Memory struct {
	mu      sync.Mutex
	multi   bool
	formats map[string][]byte
	err     error
	writes  int
}

// NewMemory returns an empty in-memory clipboard. multi selects whether it
// accepts several formats per write (like copyq) or only one (like xclip).
func NewMemory(multi bool) *Memory {
	return &Memory{multi: multi, formats: make(map[string][]byte)}
}

func (m *Memory) Name() string {
	if m.multi {
		return "memory (multi-format)"
	}
	return "memory"
}

func (m *Memory) SupportsMultiFormat() bool { return m.multi }
func (m *Memory) Executables() []string     { return nil }

func (m *Memory) Probe(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Set replaces the clipboard content as if another application had copied it.
func (m *Memory) Set(formats map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.formats = make(map[string][]byte, len(formats))
	for k, v := range formats {
		m.formats[k] = []byte(v)
	}
}

// SetBytes replaces the clipboard with a single binary representation.
func (m *Memory) SetBytes(mime string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.formats = map[string][]byte{mime: slices.Clone(data)}
}

// Fail makes every subsequent operation return err; nil restores service.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Writes reports how many successful writes the clipboard received.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *Memory) Targets() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]string, 0, len(m.formats))
	for k := range m.formats {
		out = append(out, k)
	}
	slices.Sort(out)
	return out, nil
}

func (m *Memory) ReadTarget(mime string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.formats[mime]
	if !ok {
		return nil, ErrUnsupportedTarget
	}
	return slices.Clone(data), nil
}

func (m *Memory) WriteTarget(mime string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.formats = map[string][]byte{mime: slices.Clone(data)}
	m.writes++
	return nil
}

func (m *Memory) WriteFormats(formats map[string]string) error {
	if !m.multi {
		return ErrNoMultiFormat
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.formats = make(map[string][]byte, len(formats))
	for k, v := range formats {
		m.formats[k] = []byte(v)
	}
	m.writes++
	return nil
}
