// Command texquaddemo batches the textured quads of a YAML scene and
// reports how they were merged, chained and tessellated.
//
//	texquaddemo -scene scene.yaml -backend cpu -log-level debug -log-file demo.slog
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texquad"
	"github.com/gogpu/texquad/backend/cpu"
	"github.com/gogpu/texquad/backend/halgpu"
	"github.com/gogpu/texquad/texop"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"gopkg.in/natefinch/lumberjack.v2"
)

type options struct {
	scene   string
	backend string
	level   string
	logFile string
	frames  int
	dumpOps bool
}

func main() {
	var o options
	flag.StringVar(&o.scene, "scene", "", "YAML scene file (built-in scene when empty)")
	flag.StringVar(&o.backend, "backend", "cpu", "flush target: cpu or noop")
	flag.StringVar(&o.level, "log-level", "info", "log level: debug, info, warn, error")
	flag.StringVar(&o.logFile, "log-file", "", "write JSON logs to this rotating file instead of stderr")
	flag.IntVar(&o.frames, "frames", 1, "number of frames to flush")
	flag.BoolVar(&o.dumpOps, "dump", false, "print every recorded op")
	flag.Parse()

	if err := run(o, os.Stdout); err != nil {
		log.Fatalf("texquaddemo: %v", err)
	}
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q", s)
}

// setupLogging installs the engine logger. The returned func closes the
// log file, if any.
func setupLogging(o options) (func() error, error) {
	lvl, err := parseLevel(o.level)
	if err != nil {
		return nil, err
	}
	var h slog.Handler
	closer := func() error { return nil }
	if o.logFile != "" {
		w := &lumberjack.Logger{
			Filename:   o.logFile,
			MaxSize:    32, // MB
			MaxBackups: 1,
		}
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
		closer = w.Close
	} else {
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	}
	texquad.SetLogger(slog.New(h))
	return closer, nil
}

// frameTarget is a flush target that can be drained between frames.
type frameTarget interface {
	texop.FlushTarget
	endFrame(out io.Writer) error
	close()
}

type cpuFrames struct{ *cpu.Target }

func (c cpuFrames) endFrame(out io.Writer) error {
	for i, s := range c.Submissions() {
		quads := 0
		for _, m := range s.Meshes {
			quads += m.QuadCount
		}
		fmt.Fprintf(out, "  draw %d: %s, %d meshes, %d quads\n", i, s.GP.Spec, len(s.Meshes), quads)
	}
	c.Reset()
	return nil
}

func (cpuFrames) close() {}

// countingPass tallies the commands a halgpu target encodes.
type countingPass struct {
	pipelines  int
	bindGroups int
	draws      int
	indices    uint32
}

func (p *countingPass) SetPipeline(hal.RenderPipeline) { p.pipelines++ }
func (p *countingPass) SetBindGroup(uint32, hal.BindGroup, []uint32) { p.bindGroups++ }
func (p *countingPass) SetVertexBuffer(uint32, hal.Buffer, uint64) {}
func (p *countingPass) SetIndexBuffer(hal.Buffer, gputypes.IndexFormat, uint64) {}

func (p *countingPass) DrawIndexed(indexCount, _, _ uint32, _ int32, _ uint32) {
	p.draws++
	p.indices += indexCount
}

type halFrames struct {
	*halgpu.Target
	device   hal.Device
	instance hal.Instance
}

func (h *halFrames) endFrame(out io.Writer) error {
	var pass countingPass
	if err := h.Record(&pass); err != nil {
		return err
	}
	fmt.Fprintf(out, "  encoded %d pipelines, %d bind groups, %d indexed draws, %d indices\n",
		pass.pipelines, pass.bindGroups, pass.draws, pass.indices)
	h.Reset()
	return nil
}

func (h *halFrames) close() {
	h.Destroy()
	h.device.Destroy()
	h.instance.Destroy()
}

func newTarget(o options, s *Scene) (frameTarget, error) {
	caps := texop.Caps{DynamicStateArrayTextures: s.DynamicTextures}
	switch o.backend {
	case "cpu":
		return cpuFrames{cpu.New(cpu.Config{VertexBudget: s.VertexBudget, Caps: caps})}, nil
	case "noop":
		api := noop.API{}
		instance, err := api.CreateInstance(nil)
		if err != nil {
			return nil, fmt.Errorf("create noop instance: %w", err)
		}
		adapters := instance.EnumerateAdapters(nil)
		if len(adapters) == 0 {
			instance.Destroy()
			return nil, errors.New("no noop adapter")
		}
		openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
		if err != nil {
			instance.Destroy()
			return nil, fmt.Errorf("open noop device: %w", err)
		}
		t, err := halgpu.New(openDev.Device, openDev.Queue, halgpu.Config{Label: "demo", Caps: caps})
		if err != nil {
			openDev.Device.Destroy()
			instance.Destroy()
			return nil, err
		}
		t.SetViewport(s.Viewport.Width, s.Viewport.Height)
		return &halFrames{Target: t, device: openDev.Device, instance: instance}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", o.backend)
}

// record adds ops to list in order. On failure every op is released,
// including those already recorded.
func record(list *texop.List, ops []*texop.Op, out io.Writer, dump bool) error {
	for i, op := range ops {
		if dump {
			fmt.Fprintln(out, op)
		}
		if err := list.Add(op); err != nil {
			for _, rest := range ops[i:] {
				rest.Release()
			}
			list.Discard()
			return fmt.Errorf("record op %d: %w", i, err)
		}
	}
	return nil
}

func run(o options, out io.Writer) error {
	closeLog, err := setupLogging(o)
	if err != nil {
		return err
	}
	defer closeLog() //nolint:errcheck // nothing useful to do on exit
	defer texquad.SetLogger(nil)

	var scene *Scene
	if o.scene == "" {
		scene, err = ParseScene([]byte(defaultScene))
	} else {
		scene, err = LoadScene(o.scene)
	}
	if err != nil {
		return err
	}

	target, err := newTarget(o, scene)
	if err != nil {
		return err
	}
	defer target.close()

	textures, err := scene.proxies()
	if err != nil {
		return err
	}
	defer textures.release()

	pool := texop.NewPool()
	var errs []error
	for frame := range max(o.frames, 1) {
		ops, err := scene.ops(textures, pool)
		if err != nil {
			return err
		}

		list := texop.NewList(target.Caps(), texop.WithPool(pool))
		if err := record(list, ops, out, o.dumpOps); err != nil {
			return err
		}
		fmt.Fprintf(out, "frame %d: %d ops, %d merged, %d chains\n", frame, len(ops), list.Merges(), len(list.Chains()))

		stats, err := list.Flush(target)
		texquad.Logger().Info("texquaddemo: flushed", "frame", frame, "stats", stats)
		fmt.Fprintf(out, "  %d draws, %d meshes, %d quads, %d vertices, %d failed chains\n",
			stats.Draws, stats.Meshes, stats.Quads, stats.Vertices, stats.FailedChains)
		if err != nil {
			errs = append(errs, fmt.Errorf("frame %d: %w", frame, err))
		}
		if err := target.endFrame(out); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}
