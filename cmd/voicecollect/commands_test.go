package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voicecollect/internal/testsupport"
)

func TestImportStatsNextAndExport(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithQuota(3))
	phrasesPath := writePhrasesFile(t, env.baseDir, "phrases.json",
		`["good morning", {"phrase": "  good   morning "}, {"text": "see you later"}, ""]`)

	out, _, err := runCLI(t, []string{"import", phrasesPath}, env.configPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	requireContains(t, out, "Imported 2 of 4 entries")
	requireContains(t, out, "Skipped 1 duplicate and 1 empty entries")

	out, _, err = runCLI(t, []string{"import", phrasesPath}, env.configPath)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	requireContains(t, out, "nothing imported")

	out, _, err = runCLI(t, []string{"next", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	var phrase struct {
		ID   int64  `json:"id"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(out), &phrase); err != nil {
		t.Fatalf("decode next output %q: %v", out, err)
	}
	if phrase.Text != "good morning" && phrase.Text != "see you later" {
		t.Fatalf("unexpected phrase %+v", phrase)
	}

	out, _, err = runCLI(t, []string{"stats", "nobody@example.com"}, env.configPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	requireContains(t, out, "nobody@example.com: 0 submissions")

	exportDir := filepath.Join(env.baseDir, "out")
	out, _, err = runCLI(t, []string{"export", "--format", "csv", "--output", exportDir}, env.configPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	requireContains(t, out, "Exported 0 submissions")
	data, err := os.ReadFile(filepath.Join(exportDir, "submissions_export.csv"))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) != 1 {
		t.Fatalf("expected header only, got %q", data)
	}
}

func TestImportForceFromEnvironment(t *testing.T) {
	env := setupCLITestEnv(t)
	first := writePhrasesFile(t, env.baseDir, "first.yaml", "- alpha\n- beta\n")
	second := writePhrasesFile(t, env.baseDir, "second.yaml", "- gamma\n- alpha\n")

	if _, _, err := runCLI(t, []string{"import", first}, env.configPath); err != nil {
		t.Fatalf("first import: %v", err)
	}
	t.Setenv(forceImportEnv, "true")
	out, _, err := runCLI(t, []string{"import", second}, env.configPath)
	if err != nil {
		t.Fatalf("forced import: %v", err)
	}
	requireContains(t, out, "Imported 1 of 2 entries")
}

func TestStatusReportsCatalog(t *testing.T) {
	env := setupCLITestEnv(t)
	phrasesPath := writePhrasesFile(t, env.baseDir, "phrases.json", `["one", "two", "three"]`)
	if _, _, err := runCLI(t, []string{"import", phrasesPath}, env.configPath); err != nil {
		t.Fatalf("import: %v", err)
	}

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Service ==")
	requireContains(t, out, "sqlite")
	requireContains(t, out, "Below quota")

	out, _, err = runCLI(t, []string{"status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if report.Catalog.Phrases != 3 || report.Catalog.Eligible != 3 {
		t.Fatalf("unexpected catalog %+v", report.Catalog)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("VOICECOLLECT_TEST_FLAG", "1")
	if !envBool("VOICECOLLECT_TEST_FLAG") {
		t.Fatal("expected 1 to parse as true")
	}
	t.Setenv("VOICECOLLECT_TEST_FLAG", "nope")
	if envBool("VOICECOLLECT_TEST_FLAG") {
		t.Fatal("expected invalid value to be false")
	}
	if envBool("VOICECOLLECT_TEST_UNSET") {
		t.Fatal("expected unset to be false")
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"Name", "Count"}, [][]string{{"alpha", "3"}, {"beta"}}, []columnAlignment{alignLeft, alignRight})
	for _, want := range []string{"Name", "Count", "alpha", "beta"} {
		requireContains(t, out, want)
	}
	if strings.Contains(out, "NAME") || strings.Contains(out, "COUNT") {
		t.Fatalf("headers should keep their case:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty output without headers")
	}
}
