package service

import (
	"context"
	"sync"

	"github.com/mstgnz/gmopay/provider/gmo"
)

// fakeClient records every call instead of contacting the gateway
type fakeClient struct {
	mu       sync.Mutex
	calls    []fakeCall
	response map[string]any
	err      error
	creds    gmo.Credentials
	ts       gmo.TokenService
}

type fakeCall struct {
	endpoint string
	payload  map[string]any
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		response: map[string]any{"ok": true},
		creds: gmo.Credentials{
			ShopID:     "shop-1",
			ShopSecret: "shop-secret",
			SiteID:     "site-1",
			SiteSecret: "site-secret",
		},
	}
}

func (f *fakeClient) Post(_ context.Context, endpoint string, body map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeCall{endpoint: endpoint, payload: body})
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeClient) TokenizeCard(_ context.Context, payload map[string]any) (map[string]any, error) {
	return f.Post(context.Background(), "token-service", payload)
}

func (f *fakeClient) Credentials() gmo.Credentials {
	return f.creds
}

func (f *fakeClient) TokenService() gmo.TokenService {
	return f.ts
}

func (f *fakeClient) lastCall() fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return fakeCall{}
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var _ GatewayClient = (*gmo.Client)(nil)
