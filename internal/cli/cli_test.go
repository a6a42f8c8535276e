package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// testEnv isolates the config dir and returns a store dir plus a helper that
// runs a command and decodes its JSON envelope.
func testEnv(t *testing.T) (string, func(args ...string) map[string]any) {
	t.Helper()
	t.Setenv("CARDBOARD_CONFIG_DIR", t.TempDir())
	for _, k := range []string{"CARDBOARD_DIR", "CARDBOARD_PAGE", "CARDBOARD_REMOTE", "CARDBOARD_FORMAT"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()

	mustRun := func(args ...string) map[string]any {
		t.Helper()
		args = append([]string{"--dir", dir}, args...)
		stdout, stderr, err := runCLI(t, args)
		if err != nil {
			t.Fatalf("command failed: cardboard %v\nerr: %v\nstderr:\n%s\nstdout:\n%s", args, err, stderr, stdout)
		}
		var env map[string]any
		if err := json.Unmarshal(stdout, &env); err != nil {
			t.Fatalf("unmarshal stdout as json envelope: %v\nstdout:\n%s\nargs: %v", err, stdout, args)
		}
		if _, ok := env["data"]; !ok {
			t.Fatalf("expected JSON envelope to contain data key; got: %v", env)
		}
		return env
	}
	return dir, mustRun
}

func dataMap(t *testing.T, env map[string]any) map[string]any {
	t.Helper()
	m, ok := env["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %#v", env["data"])
	}
	return m
}

func dataIDs(t *testing.T, env map[string]any) []string {
	t.Helper()
	xs, ok := env["data"].([]any)
	if !ok {
		t.Fatalf("expected data array, got %#v", env["data"])
	}
	var out []string
	for _, x := range xs {
		m, _ := x.(map[string]any)
		id, _ := m["id"].(string)
		out = append(out, id)
	}
	return out
}

func TestCLI_CardLifecycle(t *testing.T) {
	_, mustRun := testEnv(t)

	mustRun("init")
	page := dataMap(t, mustRun("pages", "create", "--title", "Links", "--use"))
	if id, _ := page["id"].(string); id == "" {
		t.Fatalf("expected page id, got %#v", page)
	}

	link := dataMap(t, mustRun("cards", "add", "--type", "link", "--url", "https://example.com", "--title", "Example"))
	linkID, _ := link["id"].(string)
	if link["cardType"] != "link" {
		t.Fatalf("unexpected card: %#v", link)
	}
	dd := dataMap(t, mustRun("cards", "add", "--type", "dropdown", "--title", "Socials"))
	ddID, _ := dd["id"].(string)
	text := dataMap(t, mustRun("cards", "add", "--type", "text", "--text", "hello", "--in", ddID))
	textID, _ := text["id"].(string)
	if text["parentContainerId"] != ddID {
		t.Fatalf("expected text inside dropdown, got %#v", text)
	}

	if got := dataIDs(t, mustRun("cards", "list")); strings.Join(got, ",") != strings.Join([]string{linkID, ddID, textID}, ",") {
		t.Fatalf("unexpected display order: %v", got)
	}

	// Link to the end of the canvas.
	moved := mustRun("cards", "move", linkID, "--index", "1")
	order, _ := moved["meta"].(map[string]any)["order"].([]any)
	if len(order) != 2 || order[1] != linkID {
		t.Fatalf("unexpected order after move: %#v", moved["meta"])
	}
	if got := dataIDs(t, mustRun("cards", "list", "--in", "canvas")); strings.Join(got, ",") != ddID+","+linkID {
		t.Fatalf("unexpected canvas: %v", got)
	}

	dup := dataMap(t, mustRun("cards", "dup", textID))
	if dup["id"] == textID || dup["parentContainerId"] != ddID {
		t.Fatalf("duplicate should be a new card in the same dropdown: %#v", dup)
	}

	set := dataMap(t, mustRun("cards", "set", linkID, "--visible=false", "--size", "wide"))
	if set["isVisible"] != false || set["size"] != "wide" {
		t.Fatalf("unexpected card after set: %#v", set)
	}

	show := dataMap(t, mustRun("cards", "show", textID))
	content, _ := show["content"].(map[string]any)
	if content["markdown"] != "hello" {
		t.Fatalf("unexpected content: %#v", show)
	}

	// Deleting the dropdown pops its children onto the canvas.
	mustRun("cards", "rm", ddID)
	canvas := dataIDs(t, mustRun("cards", "list", "--in", "canvas"))
	if len(canvas) != 3 {
		t.Fatalf("expected 3 canvas cards after dropdown delete, got %v", canvas)
	}
}

func TestCLI_NestingErrors(t *testing.T) {
	dir, mustRun := testEnv(t)
	mustRun("pages", "create", "--title", "P", "--use")
	link := dataMap(t, mustRun("cards", "add", "--type", "link"))
	dd := dataMap(t, mustRun("cards", "add", "--type", "dropdown"))

	if _, _, err := runCLI(t, []string{"--dir", dir, "cards", "add", "--type", "text", "--in", link["id"].(string)}); err == nil {
		t.Fatalf("expected error adding into a link card")
	}
	if _, _, err := runCLI(t, []string{"--dir", dir, "cards", "add", "--type", "dropdown", "--in", dd["id"].(string)}); err == nil {
		t.Fatalf("expected error nesting a dropdown")
	}
	if _, _, err := runCLI(t, []string{"--dir", dir, "cards", "add", "--type", "nope"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if got := dataIDs(t, mustRun("cards", "list")); len(got) != 2 {
		t.Fatalf("failed commands should not write, got %v", got)
	}
}

func TestCLI_ContainersAndDoctor(t *testing.T) {
	_, mustRun := testEnv(t)
	mustRun("pages", "create", "--title", "P", "--use")
	dd := dataMap(t, mustRun("cards", "add", "--type", "dropdown", "--title", "More"))
	mustRun("cards", "add", "--type", "link", "--in", dd["id"].(string))

	env := mustRun("containers")
	xs, _ := env["data"].([]any)
	if len(xs) != 2 {
		t.Fatalf("expected canvas and one dropdown, got %#v", env["data"])
	}
	if first, _ := xs[0].(map[string]any); first["id"] != "canvas" {
		t.Fatalf("canvas should come first, got %#v", xs[0])
	}

	doc := mustRun("doctor", "--fail")
	if meta, _ := doc["meta"].(map[string]any); meta["hasErrors"] != false {
		t.Fatalf("expected a clean page, got %#v", doc)
	}
}

func TestCLI_PagesSetAndShow(t *testing.T) {
	_, mustRun := testEnv(t)
	mustRun("pages", "create", "--title", "Before", "--use")
	mustRun("cards", "add", "--type", "text", "--text", "hi")

	set := dataMap(t, mustRun("pages", "set", "--title", "After", "--description", "d"))
	if set["title"] != "After" {
		t.Fatalf("unexpected page after set: %#v", set)
	}
	show := dataMap(t, mustRun("pages", "show"))
	if p, _ := show["page"].(map[string]any); p["title"] != "After" || p["description"] != "d" {
		t.Fatalf("page set was not saved: %#v", show["page"])
	}
	outline, _ := show["outline"].([]any)
	if len(outline) != 1 || outline[0] != "- text: hi" {
		t.Fatalf("unexpected outline: %#v", show["outline"])
	}
	if xs, _ := mustRun("pages", "list")["data"].([]any); len(xs) != 1 {
		t.Fatalf("expected one page, got %#v", xs)
	}
}

func TestCLI_ExportAndTable(t *testing.T) {
	dir, mustRun := testEnv(t)
	mustRun("pages", "create", "--title", "Exported", "--use")
	dd := dataMap(t, mustRun("cards", "add", "--type", "dropdown", "--title", "Socials"))
	mustRun("cards", "add", "--type", "link", "--title", "Inner", "--in", dd["id"].(string))

	stdout, stderr, err := runCLI(t, []string{"--dir", dir, "export"})
	if err != nil {
		t.Fatalf("export: %v\n%s", err, stderr)
	}
	for _, want := range []string{"title: Exported", "title: Socials", "children:", "title: Inner"} {
		if !bytes.Contains(stdout, []byte(want)) {
			t.Fatalf("export missing %q:\n%s", want, stdout)
		}
	}

	stdout, stderr, err = runCLI(t, []string{"--dir", dir, "--format", "table", "cards", "list"})
	if err != nil {
		t.Fatalf("table list: %v\n%s", err, stderr)
	}
	if !bytes.Contains(stdout, []byte("CONTAINER")) || !bytes.Contains(stdout, []byte("link: Inner")) {
		t.Fatalf("unexpected table:\n%s", stdout)
	}
}

func TestCLI_NoPage(t *testing.T) {
	dir, _ := testEnv(t)
	_, stderr, err := runCLI(t, []string{"--dir", dir, "cards", "list"})
	if err == nil {
		t.Fatalf("expected error without a current page")
	}
	if !strings.Contains(string(stderr), "no current page") {
		t.Fatalf("unexpected stderr: %s", stderr)
	}
}

func TestCLI_PublishAndDocs(t *testing.T) {
	dir, mustRun := testEnv(t)
	mustRun("pages", "create", "--title", "Published", "--use")
	mustRun("cards", "add", "--type", "link", "--title", "Home", "--url", "https://example.com")

	out := t.TempDir()
	res := dataMap(t, mustRun("publish", "--to", out))
	written, _ := res["written"].([]any)
	if len(written) != 1 {
		t.Fatalf("unexpected publish result: %#v", res)
	}
	if _, _, err := runCLI(t, []string{"--dir", dir, "publish", "--to", out}); err == nil {
		t.Fatalf("expected error publishing over an existing file")
	}

	topics, _ := mustRun("docs")["data"].([]any)
	if len(topics) == 0 {
		t.Fatalf("expected doc topics")
	}
	stdout, _, err := runCLI(t, []string{"--dir", dir, "docs", "ordering"})
	if err != nil || !bytes.HasPrefix(stdout, []byte("# Ordering")) {
		t.Fatalf("docs ordering: %v\n%s", err, stdout)
	}
}
