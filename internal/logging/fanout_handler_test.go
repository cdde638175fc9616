package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every child is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Fatal("expected single live handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsChildLevels(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	infoHandler := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	h := newFanoutHandler(infoHandler, debugHandler)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected fanout enabled for debug when any child accepts it")
	}

	slog.New(h).Debug("debug only")
	if infoBuf.Len() != 0 {
		t.Fatal("info handler should not receive debug messages")
	}
	if debugBuf.Len() == 0 {
		t.Fatal("debug handler should receive debug messages")
	}
}

func TestFanoutHandlerPropagatesAttrsAndGroups(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&buf1, nil), slog.NewJSONHandler(&buf2, nil))

	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("job_id", "j1")}).WithGroup("upload"))
	logger.Info("uploaded", slog.String("key", "a.mp3"))

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		if !bytes.Contains(buf.Bytes(), []byte(`"job_id":"j1"`)) {
			t.Fatalf("handler %d missing attr: %s", i, buf.String())
		}
		if !bytes.Contains(buf.Bytes(), []byte(`"upload":{"key":"a.mp3"}`)) {
			t.Fatalf("handler %d missing group: %s", i, buf.String())
		}
	}
}

func TestTeeLogger(t *testing.T) {
	var baseBuf, teeBuf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&baseBuf, nil))
	TeeLogger(base, slog.NewJSONHandler(&teeBuf, nil)).Info("teed message")
	if baseBuf.Len() == 0 || teeBuf.Len() == 0 {
		t.Fatal("expected output in both handlers")
	}

	var nilBase bytes.Buffer
	TeeLogger(nil, slog.NewJSONHandler(&nilBase, nil)).Info("no base")
	if nilBase.Len() == 0 {
		t.Fatal("expected output with nil base")
	}
}
