package universe

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestBanRoundTripIP is spec.md §8 invariant 9.
func TestBanRoundTripIP(t *testing.T) {
	b := NewBanList(nil, nil)
	b.BanIP("1.2.3.4", "griefing", 0)
	if banned, _ := b.IsBanned("1.2.3.4", uuid.Nil); !banned {
		t.Fatal("expected 1.2.3.4 banned")
	}
	b.UnbanIP("1.2.3.4")
	if banned, _ := b.IsBanned("1.2.3.4", uuid.Nil); banned {
		t.Fatal("expected 1.2.3.4 unbanned")
	}
}

func TestBanRoundTripUUID(t *testing.T) {
	id := uuid.New()
	b := NewBanList(nil, nil)
	b.BanUUID(id, "cheating", 0)
	if banned, _ := b.IsBanned("", id); !banned {
		t.Fatal("expected uuid banned")
	}
	b.UnbanUUID(id)
	if banned, _ := b.IsBanned("", id); banned {
		t.Fatal("expected uuid unbanned")
	}
}

func TestTempBanExpires(t *testing.T) {
	b := NewBanList(nil, nil)
	b.BanIP("5.6.7.8", "temp", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if banned, _ := b.IsBanned("5.6.7.8", uuid.Nil); banned {
		t.Fatal("expected temp ban to have expired")
	}
}

func TestPermanentBansFromConfig(t *testing.T) {
	id := uuid.New()
	b := NewBanList([]string{"9.9.9.9"}, []string{id.String()})
	if banned, _ := b.IsBanned("9.9.9.9", uuid.Nil); !banned {
		t.Fatal("expected configured ip ban to apply")
	}
	if banned, _ := b.IsBanned("", id); !banned {
		t.Fatal("expected configured uuid ban to apply")
	}
}
