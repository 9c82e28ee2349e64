package verification

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/nayeem-ahmad/ndc95/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockCodeStore struct{ mock.Mock }

func (m *mockCodeStore) Put(ctx context.Context, v *domain.VerificationCode) error {
	return m.Called(ctx, v).Error(0)
}
func (m *mockCodeStore) Get(ctx context.Context, email string) (*domain.VerificationCode, error) {
	args := m.Called(ctx, email)
	if v, _ := args.Get(0).(*domain.VerificationCode); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCodeStore) SetOutcome(ctx context.Context, email string, o domain.Outcome) error {
	return m.Called(ctx, email, o).Error(0)
}
func (m *mockCodeStore) Scan(ctx context.Context) ([]domain.VerificationCode, error) {
	args := m.Called(ctx)
	if v, _ := args.Get(0).([]domain.VerificationCode); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCodeStore) BatchDelete(ctx context.Context, emails []string) error {
	return m.Called(ctx, emails).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	return m.Called(ctx, to, subject, htmlBody, textBody).Error(0)
}

// --- Issue ---

func TestIssue_MissingEmail_ReturnsBadRequest(t *testing.T) {
	svc := NewService(nil, nil)
	_, err := svc.Issue(context.Background(), IssueRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestIssue_GeneratedCode_IsSixDigitsInRange(t *testing.T) {
	cs := &mockCodeStore{}
	cs.On("Put", mock.Anything, mock.AnythingOfType("*domain.VerificationCode")).Return(nil)

	svc := NewService(cs, nil)
	for i := 0; i < 50; i++ {
		v, err := svc.Issue(context.Background(), IssueRequest{Email: "a@b.com"})
		require.NoError(t, err)
		require.Len(t, v.Code, 6)
		n, err := strconv.Atoi(v.Code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestIssue_ExplicitCode_PreservedUnchanged(t *testing.T) {
	cs := &mockCodeStore{}
	cs.On("Put", mock.Anything, mock.AnythingOfType("*domain.VerificationCode")).Return(nil)

	svc := NewService(cs, nil)
	v, err := svc.Issue(context.Background(), IssueRequest{Email: "a@b.com", Code: "424242"})
	require.NoError(t, err)
	assert.Equal(t, "424242", v.Code)
	cs.AssertExpectations(t)
}

func TestIssue_ExpiryIsCreationPlusTenMinutes(t *testing.T) {
	cs := &mockCodeStore{}
	cs.On("Put", mock.Anything, mock.AnythingOfType("*domain.VerificationCode")).Return(nil)

	svc := NewService(cs, nil)
	v, err := svc.Issue(context.Background(), IssueRequest{Email: "a@b.com"})
	require.NoError(t, err)

	expires, err := v.ExpiresAtTime()
	require.NoError(t, err)
	// RFC 3339 truncates sub-second precision, so compare at second granularity.
	assert.Equal(t, v.CreatedAt.Add(10*time.Minute).Truncate(time.Second), expires.Truncate(time.Second))
}

func TestIssue_StoreFailure_Propagates(t *testing.T) {
	cs := &mockCodeStore{}
	cs.On("Put", mock.Anything, mock.Anything).Return(errors.New("dynamo down"))

	svc := NewService(cs, nil)
	_, err := svc.Issue(context.Background(), IssueRequest{Email: "a@b.com"})
	assert.ErrorContains(t, err, "dynamo down")
}

// --- HandleCreated ---

func TestHandleCreated_Success_RecordsDeliveredOutcome(t *testing.T) {
	cs := &mockCodeStore{}
	ml := &mockMailer{}
	ml.On("Send", mock.Anything, "a@b.com", "Your NDC95 Verification Code: 123456", mock.Anything, mock.Anything).Return(nil).Once()
	cs.On("SetOutcome", mock.Anything, "a@b.com", mock.MatchedBy(func(o domain.Outcome) bool {
		return o.Delivered() && !o.SentAt().IsZero() && o.Reason() == ""
	})).Return(nil).Once()

	svc := NewService(cs, ml)
	err := svc.HandleCreated(context.Background(), &domain.VerificationCode{Email: "a@b.com", Code: "123456"})
	require.NoError(t, err)
	ml.AssertExpectations(t)
	cs.AssertExpectations(t)
}

func TestHandleCreated_SendFailure_RecordsFailedOutcome(t *testing.T) {
	cs := &mockCodeStore{}
	ml := &mockMailer{}
	ml.On("Send", mock.Anything, "a@b.com", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp refused")).Once()
	cs.On("SetOutcome", mock.Anything, "a@b.com", mock.MatchedBy(func(o domain.Outcome) bool {
		return !o.Delivered() && o.Reason() == "smtp refused"
	})).Return(nil).Once()

	svc := NewService(cs, ml)
	err := svc.HandleCreated(context.Background(), &domain.VerificationCode{Email: "a@b.com", Code: "123456"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDelivery))
	ml.AssertExpectations(t)
	cs.AssertExpectations(t)
}

func TestHandleCreated_BodiesContainStoredCode(t *testing.T) {
	cs := &mockCodeStore{}
	ml := &mockMailer{}
	var gotHTML, gotText string
	ml.On("Send", mock.Anything, "a@b.com", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotHTML = args.String(3)
			gotText = args.String(4)
		}).Return(nil)
	cs.On("SetOutcome", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := NewService(cs, ml)
	require.NoError(t, svc.HandleCreated(context.Background(), &domain.VerificationCode{Email: "a@b.com", Code: "987654"}))
	assert.Contains(t, gotHTML, "987654")
	assert.Contains(t, gotText, "987654")
	assert.Contains(t, gotHTML, "10 minutes")
	assert.Contains(t, gotText, "10 minutes")
}

func TestHandleCreated_OutcomeWriteFailureAfterSend_IsSwallowed(t *testing.T) {
	cs := &mockCodeStore{}
	ml := &mockMailer{}
	ml.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	cs.On("SetOutcome", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("update lost")).Once()

	svc := NewService(cs, ml)
	// The mail went out; the lost annotation must not fail the invocation.
	err := svc.HandleCreated(context.Background(), &domain.VerificationCode{Email: "a@b.com", Code: "123456"})
	require.NoError(t, err)
	ml.AssertNumberOfCalls(t, "Send", 1)
}

// --- CleanupExpired ---

func TestCleanupExpired_DeletesOnlyExpiredRecords(t *testing.T) {
	now := time.Now().UTC()
	cs := &mockCodeStore{}
	cs.On("Scan", mock.Anything).Return([]domain.VerificationCode{
		{Email: "old@b.com", ExpiresAt: now.Add(-1 * time.Second).Format(time.RFC3339)},
		{Email: "fresh@b.com", ExpiresAt: now.Add(1 * time.Hour).Format(time.RFC3339)},
	}, nil)
	cs.On("BatchDelete", mock.Anything, []string{"old@b.com"}).Return(nil).Once()

	svc := NewService(cs, nil)
	deleted, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	cs.AssertExpectations(t)
}

func TestCleanupExpired_EmptyStore_DeletesNothing(t *testing.T) {
	cs := &mockCodeStore{}
	cs.On("Scan", mock.Anything).Return([]domain.VerificationCode{}, nil)

	svc := NewService(cs, nil)
	deleted, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
	cs.AssertNotCalled(t, "BatchDelete", mock.Anything, mock.Anything)
}

func TestCleanupExpired_UnparseableExpiry_IsSkipped(t *testing.T) {
	cs := &mockCodeStore{}
	cs.On("Scan", mock.Anything).Return([]domain.VerificationCode{
		{Email: "bad@b.com", ExpiresAt: "not-a-timestamp"},
	}, nil)

	svc := NewService(cs, nil)
	deleted, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
	cs.AssertNotCalled(t, "BatchDelete", mock.Anything, mock.Anything)
}

func TestCleanupExpired_ScanFailure_FailsWholeRun(t *testing.T) {
	cs := &mockCodeStore{}
	cs.On("Scan", mock.Anything).Return(nil, errors.New("throttled"))

	svc := NewService(cs, nil)
	_, err := svc.CleanupExpired(context.Background())
	assert.ErrorContains(t, err, "throttled")
}

// --- round trip ---

func TestIssueThenHandle_MessageCarriesIssuedCode(t *testing.T) {
	cs := &mockCodeStore{}
	ml := &mockMailer{}

	var stored *domain.VerificationCode
	cs.On("Put", mock.Anything, mock.AnythingOfType("*domain.VerificationCode")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.VerificationCode) }).Return(nil)
	cs.On("SetOutcome", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	var gotSubject, gotText string
	ml.On("Send", mock.Anything, "a@b.com", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotSubject = args.String(2)
			gotText = args.String(4)
		}).Return(nil)

	svc := NewService(cs, ml)
	issued, err := svc.Issue(context.Background(), IssueRequest{Email: "a@b.com"})
	require.NoError(t, err)
	require.NotNil(t, stored)

	require.NoError(t, svc.HandleCreated(context.Background(), stored))
	assert.Contains(t, gotSubject, issued.Code)
	assert.Contains(t, gotText, issued.Code)

	expires, err := stored.ExpiresAtTime()
	require.NoError(t, err)
	assert.Equal(t, stored.CreatedAt.Add(10*time.Minute).Truncate(time.Second), expires.Truncate(time.Second))
}
