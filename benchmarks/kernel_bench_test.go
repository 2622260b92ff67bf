package benchmarks

import (
	"bytes"
	"testing"
	"time"

	"github.com/graphwire/graphwire/kernel"
)

type benchAddress struct {
	Street string
	City   string
	Zip    string
}

type benchUser struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	Tags      []string
	Addresses []benchAddress
}

func newBenchUser() benchUser {
	return benchUser{
		ID:        "user-123",
		Name:      "Benchmark",
		Email:     "benchmark@example.com",
		CreatedAt: time.Now().UTC(),
		Tags:      []string{"alpha", "beta", "gamma"},
		Addresses: []benchAddress{{Street: "1 Main", City: "Benchville", Zip: "12345"}, {Street: "2 Side", City: "Benchville", Zip: "67890"}},
	}
}

func BenchmarkKernelEncode(b *testing.B) {
	k, err := kernel.New()
	if err != nil {
		b.Fatalf("create kernel: %v", err)
	}
	user := newBenchUser()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		if err := kernel.Encode(k, &buf, user); err != nil {
			b.Fatalf("encode error: %v", err)
		}
	}
}

func BenchmarkKernelDecode(b *testing.B) {
	k, err := kernel.New()
	if err != nil {
		b.Fatalf("create kernel: %v", err)
	}
	user := newBenchUser()

	var buf bytes.Buffer
	if err := kernel.Encode(k, &buf, user); err != nil {
		b.Fatalf("encode error: %v", err)
	}
	payload := buf.Bytes()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := kernel.Decode[benchUser](k, bytes.NewReader(payload)); err != nil {
			b.Fatalf("decode error: %v", err)
		}
	}
}

type benchNode struct {
	Val  int32
	Next *benchNode
}

func BenchmarkKernelEncodeDecodeCyclicGraph(b *testing.B) {
	k, err := kernel.New()
	if err != nil {
		b.Fatalf("create kernel: %v", err)
	}
	a := &benchNode{Val: 1}
	a.Next = a

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		if err := kernel.Encode(k, &buf, a); err != nil {
			b.Fatalf("encode error: %v", err)
		}
		if _, err := kernel.Decode[*benchNode](k, &buf); err != nil {
			b.Fatalf("decode error: %v", err)
		}
	}
}
