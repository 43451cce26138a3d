/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package sqlmigrate

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/acronis/go-dagmigrate"
)

const (
	manifestFileName = "manifest.yaml"
	upSuffix         = ".up.sql"
	downSuffix       = ".down.sql"
)

type manifestEntry struct {
	ID           string   `yaml:"id"`
	Dependencies []string `yaml:"dependencies"`
	Description  string   `yaml:"description"`
}

type manifest struct {
	Migrations map[string]manifestEntry `yaml:"migrations"`
}

// LoadEmbedFSMigrations loads migrations from an embedded filesystem directory.
//
// The directory must contain a manifest.yaml declaring the identity and
// dependencies of each migration, keyed by file name stem:
//
//	migrations:
//	  0001_users:
//	    id: bc960dc8-0e4a-4182-a62a-8e776d1e2b30
//	    description: create users table
//	  0002_posts:
//	    id: 4885e8ab-dafa-4d76-a565-2dee8b04ef60
//	    dependencies:
//	      - bc960dc8-0e4a-4182-a62a-8e776d1e2b30
//	    description: create posts table
//
// For every manifest key <name>, the files <name>.up.sql and <name>.down.sql
// must exist in the same directory. The returned migrations are sorted by name,
// so registering them in order keeps execution deterministic.
func LoadEmbedFSMigrations(fsys embed.FS, dirName string) ([]dagmigrate.Migration, error) {
	manifestContent, err := fs.ReadFile(fsys, path.Join(dirName, manifestFileName))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var mf manifest
	if err = yaml.Unmarshal(manifestContent, &mf); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(mf.Migrations) == 0 {
		return nil, fmt.Errorf("manifest declares no migrations")
	}

	names := make([]string, 0, len(mf.Migrations))
	for name := range mf.Migrations {
		names = append(names, name)
	}
	sort.Strings(names)

	migrations := make([]dagmigrate.Migration, 0, len(names))
	for _, name := range names {
		entry := mf.Migrations[name]

		id, err := uuid.Parse(entry.ID)
		if err != nil {
			return nil, fmt.Errorf("migration %s: parse ID %q: %w", name, entry.ID, err)
		}
		dependencies := make([]uuid.UUID, 0, len(entry.Dependencies))
		for _, depStr := range entry.Dependencies {
			dep, err := uuid.Parse(depStr)
			if err != nil {
				return nil, fmt.Errorf("migration %s: parse dependency ID %q: %w", name, depStr, err)
			}
			dependencies = append(dependencies, dep)
		}

		upContent, err := fs.ReadFile(fsys, path.Join(dirName, name+upSuffix))
		if err != nil {
			return nil, fmt.Errorf("read up migration %s: %w", name, err)
		}
		downContent, err := fs.ReadFile(fsys, path.Join(dirName, name+downSuffix))
		if err != nil {
			return nil, fmt.Errorf("read down migration %s: %w", name, err)
		}

		description := entry.Description
		if description == "" {
			description = name
		}

		migrations = append(migrations, NewSQLMigration(
			id, dependencies, description, parseSQL(string(upContent)), parseSQL(string(downContent)),
		))
	}

	return migrations, nil
}

// parseSQL splits SQL content into individual statements.
// This is a simple implementation that splits on semicolons.
// A more sophisticated parser could handle edge cases like semicolons in strings.
func parseSQL(content string) []string {
	var statements []string
	var currentStmt strings.Builder

	for _, line := range strings.Split(content, "\n") {
		// Skip SQL comments (simple implementation)
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") || strings.HasPrefix(trimmed, "#") {
			continue
		}

		// Handle multi-line statements
		currentStmt.WriteString(line)
		currentStmt.WriteString("\n")

		// Check if statement is complete (ends with semicolon)
		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSpace(currentStmt.String())
			if stmt != "" && stmt != ";" {
				statements = append(statements, stmt)
			}
			currentStmt.Reset()
		}
	}

	// Add any remaining statement
	if currentStmt.Len() > 0 {
		stmt := strings.TrimSpace(currentStmt.String())
		if stmt != "" && stmt != ";" {
			statements = append(statements, stmt)
		}
	}

	return statements
}
