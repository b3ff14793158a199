package connectivity

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestDialCheck(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()
	addr := ln.Addr().String()

	check := DialCheck(addr, time.Second)
	if !check(context.Background()) {
		t.Error("expected listener to be reachable")
	}

	_ = ln.Close()
	if check(context.Background()) {
		t.Error("expected closed listener to be unreachable")
	}
}
