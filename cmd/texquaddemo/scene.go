package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texquad/geom"
	"github.com/gogpu/texquad/proxy"
	"github.com/gogpu/texquad/quadaa"
	"github.com/gogpu/texquad/texop"
	"gopkg.in/yaml.v3"
)

// Scene is a YAML description of textures and the quads drawn from them.
type Scene struct {
	Viewport struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	} `yaml:"viewport"`
	// DynamicTextures lets one draw switch textures per mesh.
	DynamicTextures bool `yaml:"dynamic_textures"`
	// VertexBudget caps vertices handed out by the cpu backend.
	VertexBudget int          `yaml:"vertex_budget"`
	Textures     []TextureDef `yaml:"textures"`
	Draws        []DrawDef    `yaml:"draws"`
}

// TextureDef declares a texture by name.
type TextureDef struct {
	Name      string `yaml:"name"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Format    string `yaml:"format"`
	Origin    string `yaml:"origin"`
	Rectangle bool   `yaml:"rectangle"`
}

// DrawDef is one op. With Set it becomes a multi-texture op.
type DrawDef struct {
	Texture   string     `yaml:"texture"`
	Src       [4]float32 `yaml:"src"`
	Dst       [4]float32 `yaml:"dst"`
	Filter    string     `yaml:"filter"`
	AA        string     `yaml:"aa"`
	Edges     string     `yaml:"edges"`
	Alpha     *float32   `yaml:"alpha"`
	Strict    bool       `yaml:"strict"`
	Rotate    float64    `yaml:"rotate"`
	Translate [2]float32 `yaml:"translate"`
	Scale     [2]float32 `yaml:"scale"`
	// Repeat draws the op Repeat times, each shifted by Step.
	Repeat int        `yaml:"repeat"`
	Step   [2]float32 `yaml:"step"`
	Set    []SetDef   `yaml:"set"`
}

// SetDef is one entry of a multi-texture op.
type SetDef struct {
	Texture string     `yaml:"texture"`
	Src     [4]float32 `yaml:"src"`
	Dst     [4]float32 `yaml:"dst"`
	Edges   string     `yaml:"edges"`
	Alpha   *float32   `yaml:"alpha"`
}

var errBadScene = errors.New("texquaddemo: invalid scene")

// LoadScene reads a scene from a YAML file.
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene file: %w", err)
	}
	return ParseScene(data)
}

// ParseScene decodes a YAML scene and applies defaults.
func ParseScene(data []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scene file: %w", err)
	}
	if s.Viewport.Width <= 0 {
		s.Viewport.Width = 512
	}
	if s.Viewport.Height <= 0 {
		s.Viewport.Height = 512
	}
	for i := range s.Draws {
		if s.Draws[i].Repeat <= 0 {
			s.Draws[i].Repeat = 1
		}
		if s.Draws[i].Scale == [2]float32{} {
			s.Draws[i].Scale = [2]float32{1, 1}
		}
	}
	return &s, nil
}

// defaultScene draws an atlas and an icon sheet with a mix of transforms.
const defaultScene = `
viewport: {width: 640, height: 480}
dynamic_textures: true
textures:
  - {name: atlas, width: 256, height: 256}
  - {name: icons, width: 128, height: 128, origin: bottom-left}
draws:
  - {texture: atlas, src: [0, 0, 64, 64], dst: [16, 16, 64, 64], repeat: 8, step: [72, 0]}
  - {texture: icons, src: [0, 0, 32, 32], dst: [16, 112, 48, 48], aa: coverage, rotate: 15, translate: [40, 0]}
  - {texture: atlas, src: [64, 64, 32, 32], dst: [200, 200, 96, 96], filter: mipmap, strict: true}
  - set:
      - {texture: atlas, src: [0, 0, 16, 16], dst: [320, 16, 32, 32]}
      - {texture: icons, src: [0, 0, 16, 16], dst: [360, 16, 32, 32], alpha: 0.5}
`

type sceneTextures map[string]*proxy.TextureProxy

func (s *Scene) proxies() (sceneTextures, error) {
	out := make(sceneTextures, len(s.Textures))
	for _, td := range s.Textures {
		if td.Name == "" {
			return nil, fmt.Errorf("%w: unnamed texture", errBadScene)
		}
		if _, dup := out[td.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate texture %q", errBadScene, td.Name)
		}
		format, err := parseFormat(td.Format)
		if err != nil {
			return nil, err
		}
		origin := proxy.OriginTopLeft
		switch td.Origin {
		case "", "top-left":
		case "bottom-left":
			origin = proxy.OriginBottomLeft
		default:
			return nil, fmt.Errorf("%w: texture %q origin %q", errBadScene, td.Name, td.Origin)
		}
		typ := proxy.Type2D
		if td.Rectangle {
			typ = proxy.TypeRectangle
		}
		p, err := proxy.New(proxy.Desc{
			Width:  td.Width,
			Height: td.Height,
			Format: format,
			Type:   typ,
			Origin: origin,
			Label:  td.Name,
		})
		if err != nil {
			return nil, fmt.Errorf("texture %q: %w", td.Name, err)
		}
		out[td.Name] = p
	}
	return out, nil
}

// release drops the creator refs taken by proxies.
func (st sceneTextures) release() {
	for _, p := range st {
		p.Unref()
	}
}

func (st sceneTextures) get(name string) (*proxy.TextureProxy, error) {
	p, ok := st[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown texture %q", errBadScene, name)
	}
	return p, nil
}

// ops builds every op of the scene in draw order.
func (s *Scene) ops(st sceneTextures, pool *texop.Pool) ([]*texop.Op, error) {
	var ops []*texop.Op
	fail := func(err error) ([]*texop.Op, error) {
		for _, op := range ops {
			op.Release()
		}
		return nil, err
	}
	for i, d := range s.Draws {
		filter, err := parseFilter(d.Filter)
		if err != nil {
			return fail(fmt.Errorf("draw %d: %w", i, err))
		}
		aa, err := parseAA(d.AA)
		if err != nil {
			return fail(fmt.Errorf("draw %d: %w", i, err))
		}
		for r := range d.Repeat {
			view := geom.Translate(d.Translate[0]+float32(r)*d.Step[0], d.Translate[1]+float32(r)*d.Step[1]).
				Concat(geom.Rotate(d.Rotate * math.Pi / 180)).
				Concat(geom.Scale(d.Scale[0], d.Scale[1]))
			op, err := d.build(st, pool, filter, aa, view)
			if err != nil {
				return fail(fmt.Errorf("draw %d: %w", i, err))
			}
			ops = append(ops, op)
		}
	}
	return ops, nil
}

func (d *DrawDef) build(st sceneTextures, pool *texop.Pool, filter texop.Filter, aa quadaa.AAType, view geom.Matrix) (*texop.Op, error) {
	if len(d.Set) > 0 {
		entries := make([]texop.SetEntry, 0, len(d.Set))
		for _, e := range d.Set {
			p, err := st.get(e.Texture)
			if err != nil {
				return nil, err
			}
			edges, err := parseEdges(e.Edges)
			if err != nil {
				return nil, err
			}
			entries = append(entries, texop.SetEntry{
				Proxy:   p,
				SrcRect: xywh(e.Src),
				DstRect: xywh(e.Dst),
				AAFlags: edges,
				Alpha:   alphaOr1(e.Alpha),
			})
		}
		return texop.NewOpFromSet(pool, entries, filter, aa, view, nil)
	}
	p, err := st.get(d.Texture)
	if err != nil {
		return nil, err
	}
	edges, err := parseEdges(d.Edges)
	if err != nil {
		return nil, err
	}
	constraint := texop.ConstraintFast
	if d.Strict {
		constraint = texop.ConstraintStrict
	}
	return texop.NewOp(pool, p, filter, quadaa.Alpha(alphaOr1(d.Alpha)), xywh(d.Src), xywh(d.Dst),
		aa, edges, constraint, view, nil)
}

func xywh(v [4]float32) geom.Rect { return geom.RectXYWH(v[0], v[1], v[2], v[3]) }

func alphaOr1(a *float32) float32 {
	if a == nil {
		return 1
	}
	return *a
}

func parseFormat(s string) (gputypes.TextureFormat, error) {
	switch strings.ToLower(s) {
	case "", "rgba8":
		return gputypes.TextureFormatRGBA8Unorm, nil
	case "bgra8":
		return gputypes.TextureFormatBGRA8Unorm, nil
	case "r8":
		return gputypes.TextureFormatR8Unorm, nil
	}
	return gputypes.TextureFormatUndefined, fmt.Errorf("%w: format %q", errBadScene, s)
}

func parseFilter(s string) (texop.Filter, error) {
	switch strings.ToLower(s) {
	case "", "bilerp", "linear":
		return texop.FilterBilerp, nil
	case "nearest":
		return texop.FilterNearest, nil
	case "mipmap":
		return texop.FilterMipMap, nil
	}
	return 0, fmt.Errorf("%w: filter %q", errBadScene, s)
}

func parseAA(s string) (quadaa.AAType, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return quadaa.AANone, nil
	case "coverage":
		return quadaa.AACoverage, nil
	case "msaa":
		return quadaa.AAMSAA, nil
	}
	return 0, fmt.Errorf("%w: aa %q", errBadScene, s)
}

// parseEdges reads "all", "none" or a "|" separated list of l, t, r, b.
func parseEdges(s string) (quadaa.EdgeFlags, error) {
	switch strings.ToLower(s) {
	case "", "all":
		return quadaa.EdgeAll, nil
	case "none":
		return quadaa.EdgeNone, nil
	}
	var e quadaa.EdgeFlags
	for _, part := range strings.Split(strings.ToLower(s), "|") {
		switch strings.TrimSpace(part) {
		case "l", "left":
			e |= quadaa.EdgeLeft
		case "t", "top":
			e |= quadaa.EdgeTop
		case "r", "right":
			e |= quadaa.EdgeRight
		case "b", "bottom":
			e |= quadaa.EdgeBottom
		default:
			return 0, fmt.Errorf("%w: edge %q", errBadScene, part)
		}
	}
	return e, nil
}
