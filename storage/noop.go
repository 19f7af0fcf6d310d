package storage

import "context"

// NoopStorage remembers nothing.  It's the Storage for sessions that
// don't persist.
type NoopStorage struct{}

func (*NoopStorage) Open(ctx context.Context) error { return nil }

func (*NoopStorage) Close(ctx context.Context) error { return nil }

func (*NoopStorage) MakeSession(ctx context.Context, sid string) error { return nil }

func (*NoopStorage) RemSession(ctx context.Context, sid string) error { return nil }

func (*NoopStorage) Sessions(ctx context.Context) ([]string, error) { return nil, nil }

func (*NoopStorage) GetSession(ctx context.Context, sid string) ([]*SymbolState, error) {
	return nil, nil
}

func (*NoopStorage) WriteState(ctx context.Context, sid string, sss []*SymbolState) error {
	return nil
}
