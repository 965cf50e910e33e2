package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleURLs = `https://github.com/a
https://news.ycombinator.com/

https://github.com/b
`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, key := range []string{"SETTINGS", "MIN_TABS_IN_GROUP", "MAX_TABS_IN_GROUP", "GROUPS_LOCATION", "SORT"} {
		t.Setenv(envPrefix+"_"+key, "")
		os.Unsetenv(envPrefix + "_" + key)
	}
	return dir
}

func TestPlanFromStdin(t *testing.T) {
	isolate(t)
	out, err := execute(t, sampleURLs, "plan")
	if err != nil {
		t.Fatalf("plan error = %v", err)
	}
	for _, want := range []string{"▾ github", "(green, 2 tabs)", "    https://github.com/b", "https://news.ycombinator.com/", "3 tabs, 1 groups"} {
		if !strings.Contains(out, want) {
			t.Fatalf("plan output missing %q:\n%s", want, out)
		}
	}
}

func TestPlanFromFileWithFlags(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "urls.txt")
	if err := os.WriteFile(path, []byte(sampleURLs), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", "plan", path, "--min", "3")
	if err != nil {
		t.Fatalf("plan error = %v", err)
	}
	if !strings.Contains(out, "3 tabs, 0 groups") {
		t.Fatalf("plan --min 3 output:\n%s", out)
	}
}

func TestPlanSettingsPrecedence(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "tab_grouper.yaml"), []byte("enabled: true\nmin_tabs_in_group: 3\nmax_tabs_in_group: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, sampleURLs, "plan")
	if err != nil {
		t.Fatalf("plan error = %v", err)
	}
	if !strings.Contains(out, "0 groups") {
		t.Fatalf("settings file min 3 ignored:\n%s", out)
	}

	t.Setenv("TABGROUP_MIN_TABS_IN_GROUP", "2")
	out, err = execute(t, sampleURLs, "plan")
	if err != nil {
		t.Fatalf("plan error = %v", err)
	}
	if !strings.Contains(out, "1 groups") {
		t.Fatalf("env min 2 did not override file:\n%s", out)
	}

	out, err = execute(t, sampleURLs, "plan", "--min", "3")
	if err != nil {
		t.Fatalf("plan error = %v", err)
	}
	if !strings.Contains(out, "0 groups") {
		t.Fatalf("flag min 3 did not override env:\n%s", out)
	}
}

func TestPlanErrors(t *testing.T) {
	isolate(t)
	cases := [][]string{
		{"plan", "--settings", "missing.yaml"},
		{"plan", "--location", "left"},
		{"plan", "--min", "5", "--max", "2"},
		{"plan", "no-such-file.txt"},
	}
	for _, args := range cases {
		if _, err := execute(t, sampleURLs, args...); err == nil {
			t.Fatalf("%v error = nil; want error", args)
		}
	}
	if _, err := execute(t, "\n  \n", "plan"); err == nil {
		t.Fatal("plan with no urls error = nil; want error")
	}
}

func TestKey(t *testing.T) {
	isolate(t)
	out, err := execute(t, "", "key", "https://github.com/a", "https://docs.google.com/document/d/abc")
	if err != nil {
		t.Fatalf("key error = %v", err)
	}
	for _, want := range []string{
		`key:   ["github","/a"]`,
		"label: github/a",
		"color: green",
		`key:   ["docs.google","/document","/d","/abc"]`,
		"label: docs.google../d/abc",
		"color: purple",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("key output missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, "", "key"); err == nil {
		t.Fatal("key without args error = nil; want error")
	}
}
