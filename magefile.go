//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target to run when none is specified
var Default = Build

// Build compiles the server and the CLI into the bin/ directory.
func Build() error {
	fmt.Println("Building...")
	if err := sh.Run("go", "build", "-o", "./bin/sheetconv-server", "./cmd/server"); err != nil {
		return err
	}
	return sh.Run("go", "build", "-o", "./bin/sheetconv", "./cmd/sheetconv")
}

// Generate rebuilds the _templ.go files from the .templ sources.
func Generate() error {
	fmt.Println("Generating templates...")
	return sh.RunV("go", "run", "github.com/a-h/templ/cmd/templ", "generate", "-path", "./internal/web/templates")
}

// Run starts the web server with the local .env.
func Run() error {
	mg.Deps(Build)
	return sh.RunV("./bin/sheetconv-server")
}

// Test runs all tests in the project with verbose output.
func Test() error {
	fmt.Println("Running Tests...")
	return sh.Run("go", "test", "-v", "./...")
}

// TestPostgres runs the store tests against the database in TEST_DATABASE_URL.
func TestPostgres() error {
	if os.Getenv("TEST_DATABASE_URL") == "" {
		return fmt.Errorf("TEST_DATABASE_URL is not set")
	}
	fmt.Println("Running Postgres store tests...")
	return sh.RunV("go", "test", "-v", "-run", "Store", "./internal/store/...")
}

// Clean removes build output and generated scripts.
func Clean() error {
	fmt.Println("Cleaning...")
	for _, dir := range []string{"bin", "downloads"} {
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	return nil
}

// Tidy runs go mod tidy.
func Tidy() error {
	fmt.Println("Running go mod tidy...")
	return sh.Run("go", "mod", "tidy")
}

// Check runs formatting and linting checks (fmt, vet).
func Check() error {
	mg.Deps(Fmt, Vet)
	return nil
}

// Fmt runs go fmt ./...
func Fmt() error {
	fmt.Println("Running go fmt...")
	return sh.Run("go", "fmt", "./...")
}

// Vet runs go vet ./...
func Vet() error {
	fmt.Println("Running go vet...")
	return sh.Run("go", "vet", "./...")
}
