package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jwebster45206/hearth-engine/pkg/conditionals"
	"github.com/jwebster45206/hearth-engine/pkg/content"
	"github.com/jwebster45206/hearth-engine/pkg/dialogue"
)

func main() {
	strict := flag.Bool("strict", false, "treat dialogue warnings as errors")
	samples := flag.Int("samples", dialogue.DefaultSampleLimit, "max world contexts sampled per NPC")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-strict] [-samples n] <content.yaml>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	failed := false
	for _, filename := range flag.Args() {
		validator := &ContentValidator{strict: *strict, samples: *samples}
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		for _, w := range validator.warnings {
			fmt.Println(w)
		}
		fmt.Printf("%s is valid!\n", filename)
	}
	if failed {
		os.Exit(1)
	}
}

type ContentValidator struct {
	strict   bool
	samples  int
	errors   []string
	warnings []string
}

func (v *ContentValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	ext := filepath.Ext(baseName)
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("content file must have .yaml extension: %s", baseName)
	}
	if !isValidContentFilename(strings.TrimSuffix(baseName, ext)) {
		return fmt.Errorf("content filename '%s' must be lowercase snake_case (e.g., my_village.yaml, not my-village.yaml or MyVillage.yaml)", baseName)
	}

	b, err := content.Load(filename)
	if err != nil {
		return fmt.Errorf("file %s failed strict YAML decoding: %w", filename, err)
	}

	v.errors = nil
	v.warnings = nil
	v.validateBundle(b)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *ContentValidator) validateBundle(b *content.Bundle) {
	v.validateIDFormat("start map", b.StartMap)

	for _, spec := range b.NPCs {
		v.validateIDFormat("NPC ID", spec.ID)
		v.validateIDFormat("NPC map ID", spec.MapID)

		npc, err := content.BuildNPC(spec, time.Time{})
		if err != nil {
			// joined errors print one per line
			for _, line := range strings.Split(err.Error(), "\n") {
				v.addError(line)
			}
			continue
		}

		for _, n := range npc.DialogueTable().Nodes() {
			v.validateIDFormat("dialogue node ID", n.ID)
			v.validatePredicates(n.Predicates, fmt.Sprintf("node %s/%s", npc.ID, n.ID))
			for _, r := range n.Responses {
				v.validatePredicates(r.Predicates, fmt.Sprintf("response %q of %s/%s", r.Text, npc.ID, n.ID))
			}
		}

		contexts := dialogue.SampleContexts(npc.DialogueTable(), npc.ID, v.samples)
		for _, issue := range dialogue.Validate(npc, contexts) {
			if issue.Severity == dialogue.SeverityError || v.strict {
				v.addError(issue.String())
			} else {
				v.warnings = append(v.warnings, "  - "+issue.String())
			}
		}
	}

	for _, tr := range b.Transitions {
		v.validateIDFormat("transition ID", tr.ID)
		v.validateIDFormat("transition target map", tr.ToMap)
		v.validatePredicates(tr.Predicates, "transition "+tr.ID)
	}
	for _, f := range b.Forageables {
		v.validateIDFormat("forageable ID", f.ID)
		v.validateIDFormat("forageable item ID", f.ItemID)
	}
	for _, it := range b.PlacedItems {
		v.validateIDFormat("placed item ID", it.ID)
		v.validateIDFormat("placed item item ID", it.ItemID)
	}
	for _, c := range b.Cobwebs {
		v.validateIDFormat("cobweb ID", c.ID)
		v.validateIDFormat("cobweb quest ID", c.QuestID)
		if c.MaxStage != 0 && c.MaxStage < c.MinStage {
			v.addError(fmt.Sprintf("cobweb %s max_stage %d is below min_stage %d", c.ID, c.MaxStage, c.MinStage))
		}
	}
}

func (v *ContentValidator) validatePredicates(p conditionals.Predicates, context string) {
	refs := conditionals.NewReferences()
	refs.Collect(p)
	for _, quest := range conditionals.SortedKeys(refs.Quests) {
		v.validateIDFormat(context+" quest", quest)
	}
	if err := p.Validate(); err != nil {
		v.addError(fmt.Sprintf("%s: %v", context, err))
	}
}

func (v *ContentValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}

	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *ContentValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var (
	validIDRegex       = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func isValidContentFilename(name string) bool {
	// Allow 'x.' prefix for experimental content
	name = strings.TrimPrefix(name, "x.")
	return validFilenameRegex.MatchString(name)
}
