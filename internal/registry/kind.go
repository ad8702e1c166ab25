package registry

import (
	"fmt"
	"strings"
)

// Kind identifies a supported package
type Kind int

const (
	PHP Kind = iota
	MySQL
	PHPMyAdmin
)

// Kinds returns every supported package kind in display order.
func Kinds() []Kind {
	return []Kind{PHP, MySQL, PHPMyAdmin}
}

// Name returns the display name of the kind.
func (k Kind) Name() string {
	switch k {
	case PHP:
		return "PHP"
	case MySQL:
		return "MySQL"
	case PHPMyAdmin:
		return "PHPMyAdmin"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Slug is the lowercase name used for download directories, archive names
// and catalog tool keys.
func (k Kind) Slug() string {
	return strings.ToLower(k.Name())
}

func (k Kind) String() string {
	return k.Name()
}

// ParseKind accepts a kind name in any case.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if strings.EqualFold(k.Name(), strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown package %q", s)
}
