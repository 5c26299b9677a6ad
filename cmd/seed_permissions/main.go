// seed_permissions genera el script SQL con la matriz inicial de permisos por página
// a partir de un CSV exportado de la hoja de cálculo del equipo (rol;página;permitido).
//
// Uso: go run ./cmd/seed_permissions [ruta/permisos.csv]
// Por defecto busca permisos.csv en el directorio actual.
// Acepta UTF-8 o Windows-1252 (exportación de Excel en español).
// Escribe: internal/infrastructure/postgres/migrations/0002_seed_permissions.sql
package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func main() {
	csvPath := "permisos.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}
	raw, err := os.ReadFile(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}

	rows, skipped, err := parseMatrix(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer matriz: %v\n", err)
		os.Exit(1)
	}
	for _, s := range skipped {
		fmt.Fprintf(os.Stderr, "omitida: %s\n", s)
	}

	moduleRoot := findModuleRoot()
	outPath := filepath.Join(moduleRoot, "internal", "infrastructure", "postgres", "migrations", "0002_seed_permissions.sql")
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := writeSQL(out, filepath.Base(csvPath), rows); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generado %s: %d permisos, %d filas omitidas\n", outPath, len(rows), len(skipped))
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
