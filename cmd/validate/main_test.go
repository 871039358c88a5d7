package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeContent(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

const ambiguous = `name: test
npcs:
  - id: bram
    name: Bram
    map_id: village
    position: {x: 1, y: 1}
    sprite: bram
    dialogue:
      - id: greeting
        text: Hello.
      - id: greeting
        text: Hello, friend.
        required_friendship_tier: acquaintance
`

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name         string
		file         string
		body         string
		strict       bool
		wantErr      string
		wantWarnings int
	}{
		{
			name: "village content",
			file: "village.yaml",
			body: mustRead(t, "../../data/village.yaml"),
		},
		{
			name:    "wrong extension",
			file:    "village.json",
			body:    "name: x\n",
			wantErr: ".yaml extension",
		},
		{
			name:    "bad filename",
			file:    "My-Village.yaml",
			body:    "name: x\n",
			wantErr: "snake_case",
		},
		{
			name:    "unknown field",
			file:    "village.yaml",
			body:    "name: x\nmayor: bob\n",
			wantErr: "failed strict YAML decoding",
		},
		{
			name:         "ambiguity is a warning",
			file:         "village.yaml",
			body:         ambiguous,
			wantWarnings: 1,
		},
		{
			name:    "ambiguity fails in strict mode",
			file:    "village.yaml",
			body:    ambiguous,
			strict:  true,
			wantErr: "more than one node visible",
		},
		{
			name: "unknown state",
			file: "village.yaml",
			body: `name: test
npcs:
  - id: hen
    name: Hen
    map_id: yard
    sprite: hen
    initial_state: peck
    states:
      peck:
        sprites: [hen]
        duration: 1s
        next_state: nap
    dialogue:
      - id: greeting
        text: Bawk.
`,
			wantErr: `"nap"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &ContentValidator{strict: tt.strict, samples: 512}
			err := v.validateFile(writeContent(t, tt.file, tt.body))

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validateFile() error = %v", err)
				}
			} else if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("validateFile() error = %v, want containing %q", err, tt.wantErr)
			}
			if len(v.warnings) != tt.wantWarnings {
				t.Errorf("warnings = %v, want %d", v.warnings, tt.wantWarnings)
			}
		})
	}
}

func TestValidateFile_ReportsEveryProblem(t *testing.T) {
	v := &ContentValidator{samples: 512}
	err := v.validateFile(writeContent(t, "village.yaml", `name: test
npcs:
  - id: mira
    name: Mira
    map_id: Village
    sprite: mira
    dialogue:
      - id: hello
        text: Hi.
        required_friendship_tier: bestie
        responses:
          - text: Go on.
            next_id: missing
`))
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"NPC map ID 'Village'", "no greeting node", `unknown node "missing"`, `unknown friendship tier "bestie"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestIsValidID(t *testing.T) {
	valid := []string{"a", "mira", "lost_cat", "stage2"}
	invalid := []string{"", "Mira", "lost-cat", "_x", "x_", "2stage"}
	for _, id := range valid {
		if !isValidID(id) {
			t.Errorf("isValidID(%q) = false, want true", id)
		}
	}
	for _, id := range invalid {
		if isValidID(id) {
			t.Errorf("isValidID(%q) = true, want false", id)
		}
	}
	if !isValidContentFilename("x.experimental_map") {
		t.Error("experimental prefix should be allowed")
	}
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}
