package cmd

import (
	"context"
	"io"
	"strings"
	"testing"

	"sigtool/internal/analysis"
	"sigtool/internal/config"
	"sigtool/internal/disasm"
	"sigtool/internal/elfx"
	"sigtool/internal/logging"
	"sigtool/internal/rawimg"
	"sigtool/internal/ui/colorize"
	"sigtool/internal/workflow"
)

// push rbp; mov rbp, rsp; pop rbp; ret, followed by padding.
var frameCode = []byte{0x55, 0x48, 0x89, 0xe5, 0x5d, 0xc3, 0xcc, 0xcc, 0xcc, 0xcc}

func newTestTarget(t *testing.T) *target {
	t.Helper()
	img := rawimg.New(0x1000, frameCode)
	dec, err := disasm.New(disasm.AMD64, img)
	if err != nil {
		t.Fatal(err)
	}
	idx := analysis.NewIndex([]elfx.Symbol{{Name: "frame", Addr: 0x1000, Size: 6}}, dec)
	return &target{
		arch:  disasm.AMD64,
		dec:   dec,
		index: idx,
		session: &workflow.Session{
			Memory:       img,
			Disassembler: dec,
			Index:        idx,
			Config:       config.Default(),
		},
	}
}

func TestBrowseGenerate(t *testing.T) {
	t.Setenv("SIGTOOL_NO_COLOR", "1")
	m := newBrowseModel(context.Background(), newTestTarget(t), logging.NewLoggerWithWriter(io.Discard))

	items := m.functions.Items()
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	item := items[0].(functionItem)

	msg, ok := m.generateCmd(item)().(generatedMsg)
	if !ok {
		t.Fatal("generateCmd did not return a generatedMsg")
	}
	if msg.err != nil {
		t.Fatal(msg.err)
	}
	if got := msg.res.Renderings[0].Text; got != "55 48 89 E5 5D C3 " {
		t.Errorf("generic = %q", got)
	}

	next, _ := m.Update(msg)
	bm := next.(browseModel)
	if bm.mode != viewSignature || bm.busy {
		t.Errorf("mode = %v, busy = %v", bm.mode, bm.busy)
	}
	view := colorize.Strip(bm.View())
	for _, want := range []string{"frame", "Esc: functions"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestBrowseGenerateFailure(t *testing.T) {
	tgt := newTestTarget(t)
	tgt.session.Config.Strategy = config.StrategyIncremental
	tgt.session.Config.IterationLimit = 1
	m := newBrowseModel(context.Background(), tgt, logging.NewLoggerWithWriter(io.Discard))

	// One growth step cannot make the signature unique within the limit
	// once the frame is duplicated.
	tgt.session.Memory = rawimg.New(0x1000, append(append([]byte{}, frameCode...), frameCode...))

	item := m.functions.Items()[0].(functionItem)
	msg := m.generateCmd(item)().(generatedMsg)
	if msg.err == nil {
		t.Fatal("generation succeeded on a duplicated frame")
	}
	if msg.alerts == "" {
		t.Error("alert was not captured")
	}
	report := colorize.Strip(m.renderResult(msg))
	if !strings.Contains(report, "Failed to get signature") {
		t.Errorf("report = %q", report)
	}
}
