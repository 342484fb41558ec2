package history

import (
	"sync"
	"testing"
	"time"
)

var t0 = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func TestAppendDropsOldest(t *testing.T) {
	b := New[int](3)
	for i := 0; i < 5; i++ {
		b.Append(t0.Add(time.Duration(i)*time.Second), i)
	}
	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}
	items := b.Items()
	for i, want := range []int{2, 3, 4} {
		if items[i].Value != want {
			t.Errorf("items[%d] = %d, want %d", i, items[i].Value, want)
		}
	}
	latest, ok := b.Latest()
	if !ok || latest.Value != 4 {
		t.Errorf("Latest() = %v, %v; want 4, true", latest.Value, ok)
	}
}

func TestDefaultSize(t *testing.T) {
	b := New[string](0)
	for i := 0; i < DefaultSize+5; i++ {
		b.Append(t0, "x")
	}
	if got := b.Len(); got != DefaultSize {
		t.Errorf("Len() = %d, want %d", got, DefaultSize)
	}
}

func TestEmpty(t *testing.T) {
	b := New[int](2)
	if _, ok := b.Latest(); ok {
		t.Error("Latest() on empty buffer should report false")
	}
	if len(b.Items()) != 0 {
		t.Error("Items() on empty buffer should be empty")
	}
}

func TestItemsIsCopy(t *testing.T) {
	b := New[int](2)
	b.Append(t0, 1)
	items := b.Items()
	items[0].Value = 99
	if got := b.Items()[0].Value; got != 1 {
		t.Errorf("buffer mutated through Items(): got %d", got)
	}
}

func TestFindAndUniqueIDs(t *testing.T) {
	b := New[int](10)
	first := b.Append(t0, 1)
	second := b.Append(t0, 2)
	if first.ID == second.ID {
		t.Fatal("entries share an id")
	}
	got, ok := b.Find(second.ID)
	if !ok || got.Value != 2 {
		t.Errorf("Find() = %v, %v; want 2, true", got.Value, ok)
	}
}

func TestConcurrentAppend(t *testing.T) {
	b := New[int](DefaultSize)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b.Append(t0, g*100+i)
				b.Items()
			}
		}(g)
	}
	wg.Wait()
	if b.Len() != DefaultSize {
		t.Errorf("Len() = %d, want %d", b.Len(), DefaultSize)
	}
}
