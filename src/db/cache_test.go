package db

import "testing"

func TestCache_SetGetClearUser(t *testing.T) {
	c, err := NewCache(1000)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	defer c.Close()

	k1 := Key(TransactionCache, "u1", "all")
	k2 := Key(TransactionCache, "u2", "all")
	c.Set(TransactionCache, k1, "one")
	c.Set(TransactionCache, k2, "two")

	if v, ok := c.Get(k1); !ok || v.(string) != "one" {
		t.Fatalf("Get(k1) = %v, %v", v, ok)
	}

	c.ClearUser("u1", TransactionCache)
	if _, ok := c.Get(k1); ok {
		t.Error("u1 entry survived ClearUser")
	}
	if _, ok := c.Get(k2); !ok {
		t.Error("u2 entry was dropped by ClearUser(u1)")
	}
}

func TestCache_Clear(t *testing.T) {
	c, err := NewCache(1000)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	defer c.Close()

	k := Key(AccountCache, "u1")
	c.Set(AccountCache, k, 42)
	if !c.Clear(AccountCache) {
		t.Fatal("Clear(accounts) returned false")
	}
	if _, ok := c.Get(k); ok {
		t.Error("entry survived Clear")
	}
	if c.Clear("nope") {
		t.Error("Clear of unknown namespace should return false")
	}
}

func TestCache_NilIsNoop(t *testing.T) {
	var c *Cache
	c.Set(TransactionCache, "k", 1)
	if _, ok := c.Get("k"); ok {
		t.Error("nil cache returned a hit")
	}
	c.ClearUser("u1", TransactionCache)
	c.Close()
}
