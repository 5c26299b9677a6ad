package main

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
)

// decode devuelve el contenido en UTF-8. Si no es UTF-8 válido se asume Windows-1252.
func decode(raw []byte) io.Reader {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if utf8.Valid(raw) {
		return bytes.NewReader(raw)
	}
	return transform.NewReader(bytes.NewReader(raw), charmap.Windows1252.NewDecoder())
}

// parseMatrix lee filas rol;página;permitido. La primera fila puede ser encabezado.
// Filas con rol desconocido, rol privilegiado o valor no booleano se omiten y se reportan.
// Si una (rol, página) se repite gana la última.
func parseMatrix(raw []byte) ([]entity.PermissionEntry, []string, error) {
	r := csv.NewReader(decode(raw))
	r.Comma = ';'
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	byKey := make(map[string]entity.PermissionEntry)
	var skipped []string
	line := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("csv: %w", err)
		}
		line++
		if len(rec) < 3 {
			skipped = append(skipped, fmt.Sprintf("línea %d: se esperaban 3 columnas", line))
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "rol") {
			continue
		}
		role := entity.ParseRole(rec[0])
		page := strings.ToLower(strings.TrimSpace(rec[1]))
		allowed, ok := parseAllowed(rec[2])
		switch {
		case !role.IsValid():
			skipped = append(skipped, fmt.Sprintf("línea %d: rol %q desconocido", line, rec[0]))
			continue
		case role.IsPrivileged():
			// admin y owner no consultan la tabla.
			skipped = append(skipped, fmt.Sprintf("línea %d: el rol %s no usa la tabla de permisos", line, role))
			continue
		case page == "":
			skipped = append(skipped, fmt.Sprintf("línea %d: página vacía", line))
			continue
		case !ok:
			skipped = append(skipped, fmt.Sprintf("línea %d: valor %q no es sí/no", line, rec[2]))
			continue
		}
		byKey[string(role)+"|"+page] = entity.PermissionEntry{
			Role:           role,
			PermissionType: entity.PermissionTypePage,
			PermissionID:   page,
			Allowed:        allowed,
		}
	}

	out := make([]entity.PermissionEntry, 0, len(byKey))
	for _, e := range byKey {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role
		}
		return out[i].PermissionID < out[j].PermissionID
	})
	return out, skipped, nil
}

func parseAllowed(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "si", "sí", "s", "x", "1", "true":
		return true, true
	case "no", "n", "0", "false", "":
		return false, true
	}
	return false, false
}

func writeSQL(w io.Writer, source string, rows []entity.PermissionEntry) error {
	var b strings.Builder
	b.WriteString("-- Matriz inicial de permisos por página (roles no privilegiados)\n")
	fmt.Fprintf(&b, "-- Generado desde %s con cmd/seed_permissions\n\n", source)
	if len(rows) == 0 {
		b.WriteString("-- Sin filas.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	b.WriteString("INSERT INTO role_permissions (role, permission_type, permission_id, allowed) VALUES\n")
	for i, e := range rows {
		sep := ","
		if i == len(rows)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "  ('%s', '%s', '%s', %t)%s\n",
			escapeSQL(string(e.Role)), e.PermissionType, escapeSQL(e.PermissionID), e.Allowed, sep)
	}
	b.WriteString("ON CONFLICT (role, permission_type, permission_id) DO NOTHING;\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
