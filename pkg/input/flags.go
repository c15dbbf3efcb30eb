package input

import "strings"

// MultiFlag is a flag.Value collecting repeated and comma-separated
// occurrences into one list: "-source crtsh,otx -source wayback"
// yields all three.
type MultiFlag []string

func (m *MultiFlag) String() string {
	return strings.Join(*m, ",")
}

func (m *MultiFlag) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*m = append(*m, part)
		}
	}
	return nil
}
