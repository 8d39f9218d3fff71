package util

import "testing"

func TestMin(t *testing.T) {
	if Min(3, 7) != 3 {
		t.Fatal("Min(3, 7) != 3")
	}
	if Min(uint(7), uint(3)) != 3 {
		t.Fatal("Min(7, 3) != 3")
	}
	if Min(5, 5) != 5 {
		t.Fatal("Min(5, 5) != 5")
	}
}

func TestRounddown(t *testing.T) {
	cases := []struct{ v, b, want uintptr }{
		{0, 16, 0},
		{1, 16, 0},
		{16, 16, 16},
		{17, 16, 16},
		{31, 16, 16},
	}
	for _, c := range cases {
		if got := Rounddown(c.v, c.b); got != c.want {
			t.Fatalf("Rounddown(%d, %d) = %d, want %d", c.v, c.b, got, c.want)
		}
	}
}

func TestRoundup(t *testing.T) {
	cases := []struct{ v, b, want uintptr }{
		{0, 16, 0},
		{1, 16, 16},
		{16, 16, 16},
		{17, 16, 32},
	}
	for _, c := range cases {
		if got := Roundup(c.v, c.b); got != c.want {
			t.Fatalf("Roundup(%d, %d) = %d, want %d", c.v, c.b, got, c.want)
		}
	}
}

func TestReadnWritenRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 4, 8} {
		buf := make([]uint8, 16)
		Writen(buf, n, 4, 0x2a)
		if got := Readn(buf, n, 4); got != 0x2a {
			t.Fatalf("size %d: Readn/Writen round trip = %#x, want 0x2a", n, got)
		}
	}
}

func TestWritenOnlyTouchesItsOwnBytes(t *testing.T) {
	buf := []uint8{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	Writen(buf, 2, 2, 0)
	if buf[0] != 0xff || buf[1] != 0xff || buf[4] != 0xff || buf[5] != 0xff {
		t.Fatalf("Writen touched bytes outside its window: %v", buf)
	}
}

func TestReadnOutOfBoundsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Readn past the end of the slice must panic")
		}
	}()
	Readn(make([]uint8, 2), 4, 0)
}

func TestWritenOutOfBoundsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Writen past the end of the slice must panic")
		}
	}()
	Writen(make([]uint8, 2), 4, 0, 1)
}
