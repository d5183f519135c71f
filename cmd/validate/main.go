package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/npc-builder/pkg/npc"
)

func main() {
	strict := flag.Bool("strict", false, "treat warnings as errors")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-strict] <npc.json|npc.yaml>...\n", os.Args[0])
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	failed := 0
	for _, filename := range flag.Args() {
		validator := &NPCValidator{Strict: *strict}
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed++
			continue
		}
		for _, w := range validator.warnings {
			fmt.Printf("  warning: %s\n", w)
		}
		fmt.Printf("%s is valid!\n", filename)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// NPCValidator checks one NPC definition file and collects what it finds.
type NPCValidator struct {
	Strict bool

	errors   []string
	warnings []string
}

var validFilename = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func (v *NPCValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(baseName))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("NPC file must have a .json, .yaml or .yml extension: %s", baseName)
	}

	// exported files are named this way, so catalog ids stay URL safe
	if !validFilename.MatchString(strings.TrimSuffix(baseName, filepath.Ext(baseName))) {
		return fmt.Errorf("NPC filename '%s' may only contain letters, digits and underscores", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil
	v.warnings = nil

	var d *npc.Definition
	if ext == ".json" {
		d, err = npc.Parse(data)
	} else {
		d, err = npc.ParseYAML(data)
	}
	if err != nil {
		return fmt.Errorf("file %s: %w", filename, err)
	}

	v.validateDefinition(d)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *NPCValidator) validateDefinition(d *npc.Definition) {
	for _, issue := range npc.Validate(d) {
		if issue.Severity == npc.SeverityError || v.Strict {
			v.errors = append(v.errors, "  "+issue.String())
			continue
		}
		v.warnings = append(v.warnings, issue.String())
	}
}
