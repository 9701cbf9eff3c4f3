package completion_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/walteh/toolxmlls/pkg/macros"
)

type mockDefinitions struct {
	mock.Mock
}

var _ macros.Definitions = (*mockDefinitions)(nil)

func (m *mockDefinitions) TokenNames(ctx context.Context, doc macros.Document) map[string]string {
	args := m.Called(ctx, doc)
	if v := args.Get(0); v != nil {
		return v.(map[string]string)
	}
	return nil
}

func (m *mockDefinitions) MacroNames(ctx context.Context, doc macros.Document) []string {
	args := m.Called(ctx, doc)
	if v := args.Get(0); v != nil {
		return v.([]string)
	}
	return nil
}
