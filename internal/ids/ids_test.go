package ids

import (
	rand "math/rand/v2"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	g := NewGenerator(nil)
	id := g.New("hand")

	if !strings.HasPrefix(id, "hand_") {
		t.Errorf("expected hand_ prefix, got %s", id)
	}
	if err := Validate("hand", id); err != nil {
		t.Errorf("generated ID failed validation: %v", err)
	}
}

func TestNewUnique(t *testing.T) {
	g := NewGenerator(nil)
	seen := make(map[string]bool)
	for range 100 {
		id := g.New("tbl")
		if seen[id] {
			t.Errorf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestNewTimeSorted(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewPCG(1, 2)))
	var ids []string
	for range 10 {
		ids = append(ids, g.New(""))
		time.Sleep(2 * time.Millisecond)
	}
	for i := 1; i < len(ids); i++ {
		if strings.Compare(ids[i-1], ids[i]) >= 0 {
			t.Errorf("IDs not sorted: %s >= %s", ids[i-1], ids[i])
		}
	}
}

func TestEncodeBase32(t *testing.T) {
	var zero [16]byte
	if got := encodeBase32(zero); got != strings.Repeat("0", 26) {
		t.Errorf("zero encodes to %s", got)
	}

	var ones [16]byte
	for i := range ones {
		ones[i] = 0xff
	}
	if got := encodeBase32(ones); got != "7"+strings.Repeat("z", 25) {
		t.Errorf("all ones encodes to %s", got)
	}

	var low [16]byte
	low[15] = 0x21 // 0b00100001: groups 00001 and 001
	if got := encodeBase32(low); got != strings.Repeat("0", 24)+"11" {
		t.Errorf("0x21 encodes to %s", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		id      string
		wantErr bool
	}{
		{"valid", "", "01h5n0et5q6mt3v7ms1234abcd", false},
		{"valid with prefix", "hand", "hand_01h5n0et5q6mt3v7ms1234abcd", false},
		{"missing prefix", "hand", "01h5n0et5q6mt3v7ms1234abcd", true},
		{"too short", "", "01h5n0et5q6mt3v7ms123", true},
		{"first character too large", "", "81h5n0et5q6mt3v7ms1234abcd", true},
		{"invalid character", "", "01h5n0et5q6mt3v7ms1234abci", true},
		{"uppercase not allowed", "", "01H5N0ET5Q6MT3V7MS1234ABCD", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.prefix, tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInviteAlphabet(t *testing.T) {
	seen := make(map[rune]bool)
	for _, c := range InviteAlphabet {
		if seen[c] {
			t.Errorf("duplicate character in alphabet: %c", c)
		}
		seen[c] = true
	}
	for _, c := range "0O1ILU" {
		if strings.ContainsRune(InviteAlphabet, c) {
			t.Errorf("alphabet should not contain %c", c)
		}
	}
}

func TestInviteCode(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewPCG(7, 7)))
	code, err := g.InviteCode(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ValidInviteCode(code) {
		t.Errorf("invalid code %q", code)
	}
	if !ValidInviteCode(strings.ToLower(code)) {
		t.Errorf("lower-case %q should validate", code)
	}
}

func TestInviteCodeSkipsTaken(t *testing.T) {
	first, err := NewGenerator(rand.New(rand.NewPCG(3, 3))).InviteCode(nil)
	if err != nil {
		t.Fatal(err)
	}

	g := NewGenerator(rand.New(rand.NewPCG(3, 3)))
	var asked []string
	code, err := g.InviteCode(func(c string) bool {
		asked = append(asked, c)
		return c == first
	})
	if err != nil {
		t.Fatal(err)
	}
	if code == first {
		t.Errorf("taken code %s returned", code)
	}
	if len(asked) != 2 {
		t.Errorf("expected 2 attempts, got %d", len(asked))
	}
}

func TestInviteCodeExhausted(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewPCG(1, 1)))
	if _, err := g.InviteCode(func(string) bool { return true }); err != ErrInviteCodesExhausted {
		t.Errorf("expected ErrInviteCodesExhausted, got %v", err)
	}
}

func TestNormalizeInviteCode(t *testing.T) {
	if got := NormalizeInviteCode("  abc7xz "); got != "ABC7XZ" {
		t.Errorf("got %q", got)
	}
	if ValidInviteCode("ABC0XZ") {
		t.Error("code containing 0 should be invalid")
	}
	if ValidInviteCode("ABCDE") {
		t.Error("short code should be invalid")
	}
}
