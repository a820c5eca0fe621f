package studybuddy

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/learnquest/learnquest/internal/generator"
)

func dial(t *testing.T, gen generator.Client) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(NewHandler(gen))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, question string) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Write(ctx, websocket.MessageText, []byte(question)); err != nil {
		t.Fatalf("writing question: %v", err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("reading reply: %v", err)
	}
	return string(data)
}

func TestHandler_AnswersQuestions(t *testing.T) {
	gen := generator.NewMockClient(map[generator.Kind]string{
		generator.KindStudyBuddy: "Photosynthesis converts light into chemical energy.",
	})
	conn := dial(t, gen)

	reply := roundTrip(t, conn, "What is photosynthesis?")
	if reply != "Photosynthesis converts light into chemical energy." {
		t.Errorf("reply = %q", reply)
	}

	if len(gen.Calls) != 1 || gen.Calls[0].Content != "What is photosynthesis?" {
		t.Errorf("generator calls = %+v", gen.Calls)
	}
}

func TestHandler_GenerationFailureGetsApology(t *testing.T) {
	gen := generator.NewMockClient(nil)
	gen.Errs = []error{errors.New("service down")}
	conn := dial(t, gen)

	reply := roundTrip(t, conn, "Help?")
	if reply != fallbackReply {
		t.Errorf("reply = %q, want fallback", reply)
	}

	// Session survives the failure.
	gen.Responses = map[generator.Kind]string{generator.KindStudyBuddy: "Of course!"}
	if got := roundTrip(t, conn, "Still there?"); got != "Of course!" {
		t.Errorf("follow-up reply = %q", got)
	}
}

func TestHandler_IgnoresBlankMessages(t *testing.T) {
	gen := generator.NewMockClient(map[generator.Kind]string{
		generator.KindStudyBuddy: "hi",
	})
	conn := dial(t, gen)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Write(ctx, websocket.MessageText, []byte("   ")); err != nil {
		t.Fatalf("writing blank: %v", err)
	}
	if got := roundTrip(t, conn, "real question"); got != "hi" {
		t.Errorf("reply = %q", got)
	}
	if len(gen.Calls) != 1 {
		t.Errorf("generator calls = %d, want 1 (blank ignored)", len(gen.Calls))
	}
}
