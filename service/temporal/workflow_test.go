package temporal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
)

func TestPollWalletWorkflow(t *testing.T) {
	const testWallet = "11111111111111111111111111111111"

	tests := []struct {
		name           string
		mockActivity   func(*testsuite.MockCallWrapper)
		expectedError  bool
		validateResult func(*testing.T, *PollWalletResult)
	}{
		{
			name: "accepted transactions are reported",
			mockActivity: func(m *testsuite.MockCallWrapper) {
				m.Return(&FetchTransactionsResult{Signatures: []string{"sig1", "sig2"}}, nil)
			},
			validateResult: func(t *testing.T, result *PollWalletResult) {
				assert.Equal(t, testWallet, result.Address)
				assert.Equal(t, 2, result.TransactionCount)
				assert.Equal(t, []string{"sig1", "sig2"}, result.Signatures)
				assert.Nil(t, result.Error)
			},
		},
		{
			name: "nothing new",
			mockActivity: func(m *testsuite.MockCallWrapper) {
				m.Return(&FetchTransactionsResult{Signatures: []string{}}, nil)
			},
			validateResult: func(t *testing.T, result *PollWalletResult) {
				assert.Zero(t, result.TransactionCount)
				assert.Nil(t, result.Error)
			},
		},
		{
			name: "activity failure fails the run",
			mockActivity: func(m *testsuite.MockCallWrapper) {
				m.Return(nil, errors.New("timeout fetching transactions"))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testSuite := &testsuite.WorkflowTestSuite{}
			env := testSuite.NewTestWorkflowEnvironment()

			activities := &Activities{}
			env.RegisterActivity(activities.FetchTransactions)
			tt.mockActivity(env.OnActivity(activities.FetchTransactions, mock.Anything, mock.Anything))

			env.ExecuteWorkflow(PollWalletWorkflow, PollWalletInput{Address: testWallet})

			require.True(t, env.IsWorkflowCompleted())
			if tt.expectedError {
				assert.Error(t, env.GetWorkflowError())
				return
			}

			require.NoError(t, env.GetWorkflowError())
			var result PollWalletResult
			require.NoError(t, env.GetWorkflowResult(&result))
			tt.validateResult(t, &result)
		})
	}
}

func TestPollWalletWorkflow_DoesNotRetryActivity(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	activities := &Activities{}
	env.RegisterActivity(activities.FetchTransactions)

	calls := 0
	env.OnActivity(activities.FetchTransactions, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { calls++ }).
		Return(nil, errors.New("rpc down"))

	env.ExecuteWorkflow(PollWalletWorkflow, PollWalletInput{Address: "wallet"})

	assert.Error(t, env.GetWorkflowError())
	assert.Equal(t, 1, calls)
}
