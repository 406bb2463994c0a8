package identity

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Operator is one entry of the operator directory file.
type Operator struct {
	UID          string         `yaml:"uid"`
	Email        string         `yaml:"email"`
	PasswordHash string         `yaml:"password_hash"`
	Claims       map[string]any `yaml:"claims"`
	Disabled     bool           `yaml:"disabled"`
}

// DirectoryFile is the root structure of the directory YAML:
//
//	operators:
//	  - uid: u1
//	    email: ops@example.com
//	    password_hash: $2a$10$...
//	    claims:
//	      role: admin
type DirectoryFile struct {
	Operators []Operator `yaml:"operators"`
}

// Directory indexes operators by lower-cased email and by uid.
type Directory struct {
	byEmail map[string]Operator
	byUID   map[string]Operator
}

// NewDirectory validates and indexes operators. Disabled entries are kept
// out of the index so they can neither sign in nor refresh credentials.
func NewDirectory(ops []Operator) (*Directory, error) {
	d := &Directory{
		byEmail: make(map[string]Operator, len(ops)),
		byUID:   make(map[string]Operator, len(ops)),
	}
	for i, op := range ops {
		op.UID = strings.TrimSpace(op.UID)
		op.Email = strings.ToLower(strings.TrimSpace(op.Email))
		switch {
		case op.UID == "":
			return nil, fmt.Errorf("operator #%d: uid is required", i)
		case op.Email == "":
			return nil, fmt.Errorf("operator %s: email is required", op.UID)
		case op.PasswordHash == "":
			return nil, fmt.Errorf("operator %s: password_hash is required", op.UID)
		}
		if _, dup := d.byUID[op.UID]; dup {
			return nil, fmt.Errorf("duplicate operator uid %q", op.UID)
		}
		if _, dup := d.byEmail[op.Email]; dup {
			return nil, fmt.Errorf("duplicate operator email %q", op.Email)
		}
		if op.Disabled {
			continue
		}
		d.byUID[op.UID] = op
		d.byEmail[op.Email] = op
	}
	return d, nil
}

// ByEmail looks an operator up, ignoring case.
func (d *Directory) ByEmail(email string) (Operator, bool) {
	op, ok := d.byEmail[strings.ToLower(strings.TrimSpace(email))]
	return op, ok
}

func (d *Directory) ByUID(uid string) (Operator, bool) {
	op, ok := d.byUID[uid]
	return op, ok
}

// Len returns the number of enabled operators.
func (d *Directory) Len() int { return len(d.byUID) }

// DirectoryLoader reads the operator directory file.
type DirectoryLoader struct {
	filePath string
}

func NewDirectoryLoader(filePath string) *DirectoryLoader {
	return &DirectoryLoader{filePath: filePath}
}

// Path returns the file the loader reads.
func (l *DirectoryLoader) Path() string { return l.filePath }

// Load reads, parses and indexes the directory file.
func (l *DirectoryLoader) Load() (*Directory, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}

	var file DirectoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse directory yaml: %w", err)
	}

	dir, err := NewDirectory(file.Operators)
	if err != nil {
		return nil, fmt.Errorf("invalid directory %s: %w", l.filePath, err)
	}
	return dir, nil
}
