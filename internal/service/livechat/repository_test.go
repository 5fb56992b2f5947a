package livechat

import (
	"testing"

	"livechat-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusChangedFromUpdatedOld(t *testing.T) {
	status := func(s string) types.AttributeValue { return &types.AttributeValueMemberS{Value: s} }
	flag := func(b bool) types.AttributeValue { return &types.AttributeValueMemberBOOL{Value: b} }

	cases := []struct {
		name string
		old  map[string]types.AttributeValue
		want int
	}{
		{"nothing stored before", nil, 1},
		{"same status, manual", map[string]types.AttributeValue{"statusLivechat": status("available"), "livechatStatusSystemModified": flag(false)}, 0},
		{"same status, flag missing", map[string]types.AttributeValue{"statusLivechat": status("available")}, 0},
		{"same status, closed by system", map[string]types.AttributeValue{"statusLivechat": status("available"), "livechatStatusSystemModified": flag(true)}, 1},
		{"different status", map[string]types.AttributeValue{"statusLivechat": status("not-available"), "livechatStatusSystemModified": flag(false)}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := statusChanged(tc.old, model.AgentStatusAvailable)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
