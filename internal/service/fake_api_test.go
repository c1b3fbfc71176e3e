package service

import (
	"context"
	"sync"

	"github.com/gatten-sekisho/sekisho/internal/domain/envelope"
	"github.com/gatten-sekisho/sekisho/internal/domain/gate"
)

// fakeGateAPI records requests and returns canned results.
type fakeGateAPI struct {
	mu sync.Mutex

	descriptor envelope.Result[map[string]any]
	submit     envelope.Result[gate.Response]
	execute    envelope.Result[gate.Response]

	// block, when set, is waited on before Submit and Execute return.
	block chan struct{}

	submits  []gate.SubmitRequest
	executes []gate.ExecuteRequest
	probes   int
}

func (f *fakeGateAPI) Descriptor(ctx context.Context) envelope.Result[map[string]any] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	return f.descriptor
}

func (f *fakeGateAPI) Submit(ctx context.Context, req gate.SubmitRequest) envelope.Result[gate.Response] {
	f.mu.Lock()
	f.submits = append(f.submits, req)
	res := f.submit
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return res
}

func (f *fakeGateAPI) Execute(ctx context.Context, req gate.ExecuteRequest) envelope.Result[gate.Response] {
	f.mu.Lock()
	f.executes = append(f.executes, req)
	res := f.execute
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return res
}

func (f *fakeGateAPI) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submits)
}

func okResponse(data gate.Response) envelope.Result[gate.Response] {
	return envelope.Result[gate.Response]{OK: true, Status: 200, Data: &data}
}

func statusResponse(status int, data gate.Response, text string) envelope.Result[gate.Response] {
	return envelope.Result[gate.Response]{
		Status:    status,
		Data:      &data,
		ErrorText: text,
		Err:       &envelope.StatusError{Status: status, Body: text},
	}
}
