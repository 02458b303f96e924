package history

import (
	"errors"
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCreateAndLookupUser(t *testing.T) {
	db := testDB(t)

	u, err := db.CreateUser("ada@example.com", "Ada Lovelace", "hash")
	if err != nil {
		t.Fatal(err)
	}
	if u.ID == "" {
		t.Fatal("no id assigned")
	}

	byEmail, err := db.UserByEmail("ada@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if byEmail.ID != u.ID || byEmail.FullName != "Ada Lovelace" {
		t.Errorf("byEmail = %+v", byEmail)
	}

	byID, err := db.UserByID(u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if byID.Email != "ada@example.com" {
		t.Errorf("byID = %+v", byID)
	}

	if _, err := db.UserByEmail("nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	db := testDB(t)
	if _, err := db.CreateUser("ada@example.com", "Ada", "h"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateUser("ada@example.com", "Imposter", "h"); err == nil {
		t.Error("duplicate email accepted")
	}
}

func TestConversationOrderingAndBounds(t *testing.T) {
	db := testDB(t)
	ada, _ := db.CreateUser("ada@example.com", "Ada", "h")
	bob, _ := db.CreateUser("bob@example.com", "Bob", "h")
	eve, _ := db.CreateUser("eve@example.com", "Eve", "h")

	m1, err := db.InsertMessage(ada.ID, bob.ID, "one")
	if err != nil {
		t.Fatal(err)
	}
	m2, _ := db.InsertMessage(bob.ID, ada.ID, "two")
	_, _ = db.InsertMessage(ada.ID, eve.ID, "other thread")
	m3, _ := db.InsertMessage(ada.ID, bob.ID, "three")

	msgs, err := db.Conversation(ada.ID, bob.ID, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3 (eve's thread excluded)", len(msgs))
	}
	if msgs[0].ID != m1.ID || msgs[1].ID != m2.ID || msgs[2].ID != m3.ID {
		t.Errorf("order = %s %s %s", msgs[0].Body, msgs[1].Body, msgs[2].Body)
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].CreatedAt < msgs[i-1].CreatedAt {
			t.Errorf("descending timestamps at %d", i)
		}
	}

	// Conversation is symmetric in its arguments.
	rev, _ := db.Conversation(bob.ID, ada.ID, 0, 0)
	if len(rev) != 3 {
		t.Errorf("reverse len = %d, want 3", len(rev))
	}

	// since bound excludes earlier messages.
	later, _ := db.Conversation(ada.ID, bob.ID, m2.CreatedAt, 0)
	for _, m := range later {
		if m.CreatedAt <= m2.CreatedAt {
			t.Errorf("since bound leaked %+v", m)
		}
	}
}

func TestSidebar(t *testing.T) {
	db := testDB(t)
	ada, _ := db.CreateUser("ada@example.com", "Ada", "h")
	bob, _ := db.CreateUser("bob@example.com", "Bob", "h")
	_, _ = db.CreateUser("eve@example.com", "Eve", "h")

	last, _ := db.InsertMessage(bob.ID, ada.ID, "latest")

	entries, err := db.Sidebar(ada.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2 (self excluded)", len(entries))
	}
	for _, e := range entries {
		if e.User.ID == ada.ID {
			t.Error("sidebar includes self")
		}
		switch e.User.ID {
		case bob.ID:
			if e.LastMessage == nil || e.LastMessage.ID != last.ID {
				t.Errorf("bob entry = %+v, want last message %s", e.LastMessage, last.ID)
			}
		default:
			if e.LastMessage != nil {
				t.Errorf("eve entry has message %+v", e.LastMessage)
			}
		}
	}
}
