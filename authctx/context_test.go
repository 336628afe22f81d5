package authctx

import (
	"context"
	"net/http/httptest"
	"testing"
)

func TestWithAndFrom(t *testing.T) {
	ctx := With(context.Background(), Principal{Username: "alice", Method: MethodBasic})

	p, ok := From(ctx)
	if !ok {
		t.Fatal("expected principal in context")
	}
	if p.Username != "alice" || p.Method != MethodBasic {
		t.Errorf("unexpected principal: %+v", p)
	}
}

func TestFrom_Missing(t *testing.T) {
	if _, ok := From(context.Background()); ok {
		t.Error("expected no principal in empty context")
	}
}

func TestFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req = req.WithContext(With(req.Context(), Principal{Username: "bob", Method: MethodSession}))

	p, ok := FromRequest(req)
	if !ok || p.Username != "bob" {
		t.Errorf("FromRequest = %+v, %v", p, ok)
	}
}

func TestMustFrom_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for missing principal")
		}
	}()
	MustFrom(context.Background())
}
