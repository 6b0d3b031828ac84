package apiconnect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/clubsplit/pkg/api"
)

func TestCodec(t *testing.T) {
	var c Codec
	assert.Equal(t, "json", c.Name())

	data, err := c.Marshal(&api.GetExpenseRequest{ExpenseID: "e1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"expense_id":"e1"}`, string(data))

	var req api.GetExpenseRequest
	require.NoError(t, c.Unmarshal(data, &req))
	assert.Equal(t, "e1", req.ExpenseID)

	// Empty bodies decode to the zero message.
	var empty api.ListMembersRequest
	assert.NoError(t, c.Unmarshal(nil, &empty))

	assert.Error(t, c.Unmarshal([]byte("{"), &req))
}
