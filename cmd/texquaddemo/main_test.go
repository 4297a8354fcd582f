package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/texquad/proxy"
	"github.com/gogpu/texquad/quadaa"
	"github.com/gogpu/texquad/texop"
)

func TestParseSceneDefaults(t *testing.T) {
	s, err := ParseScene([]byte(`
textures:
  - {name: a, width: 8, height: 8}
draws:
  - {texture: a, src: [0, 0, 8, 8], dst: [0, 0, 8, 8]}
`))
	if err != nil {
		t.Fatal(err)
	}
	if s.Viewport.Width != 512 || s.Viewport.Height != 512 {
		t.Errorf("viewport = %+v", s.Viewport)
	}
	if d := s.Draws[0]; d.Repeat != 1 || d.Scale != [2]float32{1, 1} {
		t.Errorf("draw defaults = repeat %d scale %v", d.Repeat, d.Scale)
	}
}

func TestDefaultSceneBuilds(t *testing.T) {
	s, err := ParseScene([]byte(defaultScene))
	if err != nil {
		t.Fatal(err)
	}
	textures, err := s.proxies()
	if err != nil {
		t.Fatal(err)
	}
	ops, err := s.ops(textures, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 11 {
		t.Errorf("ops = %d, want 11", len(ops))
	}
	if got := textures["icons"].Origin(); got != proxy.OriginBottomLeft {
		t.Errorf("icons origin = %v", got)
	}
	for _, op := range ops {
		op.Release()
	}
	textures.release()
	for name, p := range textures {
		if !p.Idle() {
			t.Errorf("texture %s still referenced", name)
		}
	}
}

func TestRecordReleasesOnFailure(t *testing.T) {
	s, err := ParseScene([]byte(defaultScene))
	if err != nil {
		t.Fatal(err)
	}
	textures, err := s.proxies()
	if err != nil {
		t.Fatal(err)
	}
	ops, err := s.ops(textures, nil)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	list := texop.NewList(texop.Caps{DynamicStateArrayTextures: true})
	if err := record(list, ops[:3], &out, false); err != nil {
		t.Fatal(err)
	}
	list.Close()
	if err := record(list, ops[3:], &out, true); !errors.Is(err, texop.ErrListClosed) {
		t.Fatalf("record into closed list err = %v, want ErrListClosed", err)
	}
	if len(list.Chains()) != 0 {
		t.Errorf("chains = %d after failed record", len(list.Chains()))
	}
	textures.release()
	for name, p := range textures {
		if !p.Idle() {
			t.Errorf("texture %s still referenced: refs %d reads %d", name, p.Refs(), p.PendingReads())
		}
	}
}

func TestSceneErrors(t *testing.T) {
	tests := []struct {
		name  string
		scene string
	}{
		{"unknown texture", "draws:\n  - {texture: nope, src: [0,0,1,1], dst: [0,0,1,1]}\n"},
		{"bad filter", "textures: [{name: a, width: 4, height: 4}]\ndraws:\n  - {texture: a, filter: cubic, src: [0,0,1,1], dst: [0,0,1,1]}\n"},
		{"bad edges", "textures: [{name: a, width: 4, height: 4}]\ndraws:\n  - {texture: a, edges: x, src: [0,0,1,1], dst: [0,0,1,1]}\n"},
		{"bad origin", "textures: [{name: a, width: 4, height: 4, origin: middle}]\n"},
		{"duplicate texture", "textures: [{name: a, width: 4, height: 4}, {name: a, width: 4, height: 4}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseScene([]byte(tt.scene))
			if err != nil {
				t.Fatal(err)
			}
			textures, err := s.proxies()
			if err == nil {
				_, err = s.ops(textures, nil)
				textures.release()
			}
			if !errors.Is(err, errBadScene) {
				t.Errorf("err = %v, want errBadScene", err)
			}
		})
	}
}

func TestParseEdges(t *testing.T) {
	tests := []struct {
		in   string
		want quadaa.EdgeFlags
	}{
		{"", quadaa.EdgeAll},
		{"none", quadaa.EdgeNone},
		{"l|t", quadaa.EdgeLeft | quadaa.EdgeTop},
		{"Right | Bottom", quadaa.EdgeRight | quadaa.EdgeBottom},
	}
	for _, tt := range tests {
		got, err := parseEdges(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseEdges(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestRun(t *testing.T) {
	for _, backend := range []string{"cpu", "noop"} {
		t.Run(backend, func(t *testing.T) {
			var out bytes.Buffer
			logFile := filepath.Join(t.TempDir(), "demo.slog")
			o := options{backend: backend, level: "debug", logFile: logFile, frames: 2}
			if err := run(o, &out); err != nil {
				t.Fatal(err)
			}
			if n := strings.Count(out.String(), "frame "); n != 2 {
				t.Errorf("output has %d frames:\n%s", n, out.String())
			}
			data, err := os.ReadFile(logFile)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Contains(data, []byte(`"msg":"texquaddemo: flushed"`)) {
				t.Errorf("log file lacks flush records:\n%s", data)
			}
		})
	}
}

func TestRunSceneFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	scene := `
vertex_budget: 16
textures: [{name: a, width: 16, height: 16}]
draws:
  - {texture: a, src: [0, 0, 16, 16], dst: [0, 0, 16, 16], repeat: 6, step: [20, 0]}
`
	if err := os.WriteFile(path, []byte(scene), 0o600); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	err := run(options{scene: path, backend: "cpu", level: "error"}, &out)
	if !errors.Is(err, texop.ErrVertexAllocFailed) {
		t.Fatalf("err = %v, want vertex shortfall", err)
	}
	if !strings.Contains(out.String(), "4 quads") {
		t.Errorf("output = %s", out.String())
	}
}

func TestRunRejectsUnknownBackend(t *testing.T) {
	if err := run(options{backend: "vulkan", level: "info"}, &bytes.Buffer{}); err == nil {
		t.Error("unknown backend must fail")
	}
	if err := run(options{backend: "cpu", level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Error("bad log level must fail")
	}
}
