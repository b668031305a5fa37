package session

import "testing"

func TestSenderString(t *testing.T) {
	if got := SenderUser.String(); got != "user" {
		t.Errorf("SenderUser.String() = %q, want user", got)
	}
	if got := SenderBot.String(); got != "bot" {
		t.Errorf("SenderBot.String() = %q, want bot", got)
	}
}

func TestTranscriptAppendOnly(t *testing.T) {
	var tr Transcript
	tr.Append(NewMessage("hello", SenderUser))
	tr.Append(NewMessage("hi", SenderBot))
	tr.Append(NewMessage("again", SenderUser))

	msgs := tr.Messages()
	if len(msgs) != 3 || tr.Len() != 3 {
		t.Fatalf("len = %d/%d, want 3", len(msgs), tr.Len())
	}
	want := []string{"hello", "hi", "again"}
	for i, m := range msgs {
		if m.Text != want[i] {
			t.Errorf("msgs[%d].Text = %q, want %q", i, m.Text, want[i])
		}
	}

	// Mutating the copy must not touch the transcript.
	msgs[0].Text = "changed"
	if tr.Messages()[0].Text != "hello" {
		t.Error("Messages() returned a shared slice")
	}
}

func TestTranscriptLast(t *testing.T) {
	var tr Transcript
	if _, ok := tr.Last(SenderBot); ok {
		t.Fatal("Last on empty transcript reported a message")
	}

	tr.Append(NewMessage("q1", SenderUser))
	tr.Append(NewMessage("a1", SenderBot))
	tr.Append(NewMessage("q2", SenderUser))

	msg, ok := tr.Last(SenderBot)
	if !ok || msg.Text != "a1" {
		t.Errorf("Last(bot) = %q, %v; want a1, true", msg.Text, ok)
	}
	msg, ok = tr.Last(SenderUser)
	if !ok || msg.Text != "q2" {
		t.Errorf("Last(user) = %q, %v; want q2, true", msg.Text, ok)
	}
}
