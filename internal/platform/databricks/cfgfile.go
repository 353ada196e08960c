package databricks

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
)

// defaultSection holds keys that appear before any section header.
const defaultSection = "DEFAULT"

// section is one profile of the configuration file.
type section struct {
	name string
	keys map[string]string
}

// parseConfig reads the INI dialect of the Databricks CLI: [name] headers,
// key = value lines and ; or # comments. Sections keep file order.
func parseConfig(r io.Reader) ([]section, error) {
	var (
		sections []section
		cur      *section
	)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, fmt.Errorf("line %d: unterminated section header", lineNo)
			}
			sections = append(sections, section{
				name: strings.TrimSpace(line[1 : len(line)-1]),
				keys: map[string]string{},
			})
			cur = &sections[len(sections)-1]
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected key = value", lineNo)
		}
		if cur == nil {
			sections = append(sections, section{name: defaultSection, keys: map[string]string{}})
			cur = &sections[len(sections)-1]
		}
		cur.keys[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return sections, nil
}

// readConfig parses path. A missing file is an empty configuration.
func readConfig(path string) ([]section, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	sections, err := parseConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return sections, nil
}

// appendSection appends a profile to path, creating the file with owner-only
// permissions when needed.
func appendSection(path, name string, keys [][2]string) error {
	var buf bytes.Buffer
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		buf.WriteString("\n")
	}
	fmt.Fprintf(&buf, "[%s]\n", name)
	width := 0
	for _, kv := range keys {
		width = max(width, len(kv[0]))
	}
	for _, kv := range keys {
		fmt.Fprintf(&buf, "%-*s = %s\n", width, kv[0], kv[1])
	}

	// #nosec G304 - path is the Databricks CLI configuration file
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
