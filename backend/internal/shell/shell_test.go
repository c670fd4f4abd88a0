package shell

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PortNumber53/sports-camp/backend/internal/booking"
	"github.com/PortNumber53/sports-camp/backend/internal/checkout"
	"github.com/PortNumber53/sports-camp/backend/internal/models"
)

type stubRelay struct {
	requests []models.PaymentIntentRequest
	err      error
}

func (s *stubRelay) CreatePaymentIntent(_ context.Context, req models.PaymentIntentRequest) (models.PaymentIntentResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return models.PaymentIntentResponse{}, s.err
	}
	return models.PaymentIntentResponse{ClientSecret: "pi_1_secret_x", PaymentIntentID: "pi_1"}, nil
}

type stubProvider struct {
	status models.PaymentIntentStatus
	err    error
}

func (s *stubProvider) ConfirmPayment(context.Context, string, string) (*checkout.Intent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &checkout.Intent{ID: "pi_1", Status: s.status}, nil
}

func (s *stubProvider) HandleCardAction(context.Context, string) error {
	return nil
}

func validFields() booking.Fields {
	return booking.Fields{
		ParentName:    "Amal Haddad",
		ParentEmail:   "amal@example.com",
		ParentPhone:   "050 123 4567",
		ParentAddress: "Jumeirah",
		ChildName:     "Lina",
		ChildAge:      "8",
		ChildGender:   "female",
	}
}

func TestInitialView(t *testing.T) {
	s := New()
	assert.Equal(t, ViewNone, s.View())
	_, ok := s.SelectedPlan()
	assert.False(t, ok)
}

func TestSelectAndCloseForm(t *testing.T) {
	s := New()

	assert.ErrorIs(t, s.SelectPlan(42), models.ErrPlanNotFound)
	assert.Equal(t, ViewNone, s.View())

	require.NoError(t, s.SelectPlan(1))
	assert.Equal(t, ViewBookingForm, s.View())
	plan, ok := s.SelectedPlan()
	require.True(t, ok)
	assert.Equal(t, "1-Day Adventure", plan.Name)

	assert.ErrorIs(t, s.SelectPlan(2), ErrInvalidTransition)

	require.NoError(t, s.CloseForm())
	assert.Equal(t, ViewNone, s.View())
	_, ok = s.SelectedPlan()
	assert.False(t, ok)

	assert.ErrorIs(t, s.CloseForm(), ErrInvalidTransition)
}

func TestSubmitBookingValidation(t *testing.T) {
	s := New()
	require.NoError(t, s.SelectPlan(2))

	fields := validFields()
	fields.ParentPhone = "call me"
	_, err := s.SubmitBooking(fields)

	var verrs booking.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, booking.FieldParentPhone)
	assert.Equal(t, ViewBookingForm, s.View())
	_, ok := s.Booking()
	assert.False(t, ok)
}

func TestSubmitBookingOutsideForm(t *testing.T) {
	_, err := New().SubmitBooking(validFields())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPaymentSuccessFlow(t *testing.T) {
	s := New()
	require.NoError(t, s.SelectPlan(2))

	record, err := s.SubmitBooking(validFields())
	require.NoError(t, err)
	assert.Equal(t, ViewPaymentProcessor, s.View())
	assert.Equal(t, 8, record.ChildAge)

	relay := &stubRelay{}
	p, err := s.BeginPayment(relay, &stubProvider{status: models.IntentSucceeded})
	require.NoError(t, err)

	require.NoError(t, p.Start(context.Background()))
	require.Len(t, relay.requests, 1)
	assert.Equal(t, int64(40000), relay.requests[0].Amount)
	assert.Equal(t, record.Reference, relay.requests[0].Metadata["bookingReference"])

	p.ElementReady()
	require.NoError(t, p.Submit(context.Background()))

	assert.Equal(t, ViewNone, s.View())
	_, ok := s.Booking()
	assert.False(t, ok)
	_, ok = s.SelectedPlan()
	assert.False(t, ok)

	c, ok := s.Confirmation()
	require.True(t, ok)
	assert.Equal(t, Confirmation{PaymentID: "pi_1", Amount: 400, Currency: "aed", ChildName: "Lina", PlanName: "3-Day Explorer"}, c)
	assert.Equal(t, "Payment ID: pi_1, Amount: aed 400", c.String())

	s.DismissConfirmation()
	_, ok = s.Confirmation()
	assert.False(t, ok)
}

func TestPaymentCancelReturnsToForm(t *testing.T) {
	s := New()
	require.NoError(t, s.SelectPlan(3))
	_, err := s.SubmitBooking(validFields())
	require.NoError(t, err)

	p, err := s.BeginPayment(&stubRelay{}, &stubProvider{})
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Cancel())

	assert.Equal(t, ViewBookingForm, s.View())
	plan, ok := s.SelectedPlan()
	require.True(t, ok)
	assert.Equal(t, 650, plan.Price)
	_, ok = s.Booking()
	assert.False(t, ok)
	_, ok = s.Draft()
	assert.False(t, ok)
	assert.NoError(t, s.LastError())

	_, err = s.SubmitBooking(validFields())
	assert.NoError(t, err)
}

func TestRelayFailureReturnsToForm(t *testing.T) {
	s := New()
	require.NoError(t, s.SelectPlan(1))
	_, err := s.SubmitBooking(validFields())
	require.NoError(t, err)

	relayErr := &checkout.RelayError{StatusCode: 400, Message: "Amount and currency are required"}
	p, err := s.BeginPayment(&stubRelay{err: relayErr}, &stubProvider{})
	require.NoError(t, err)

	assert.Error(t, p.Start(context.Background()))
	assert.Equal(t, checkout.StateFailed, p.State())
	assert.Equal(t, ViewBookingForm, s.View())
	assert.True(t, errors.Is(s.LastError(), relayErr))

	kept, ok := s.Booking()
	require.True(t, ok)
	assert.Equal(t, "Lina", kept.ChildName)
	draft, ok := s.Draft()
	require.True(t, ok)
	assert.Equal(t, validFields(), draft)
}

func TestProviderFailureReturnsToForm(t *testing.T) {
	s := New()
	require.NoError(t, s.SelectPlan(1))
	_, err := s.SubmitBooking(validFields())
	require.NoError(t, err)

	p, err := s.BeginPayment(&stubRelay{}, &stubProvider{err: errors.New("Your card was declined.")})
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	p.ElementReady()

	assert.Error(t, p.Submit(context.Background()))
	assert.Equal(t, ViewBookingForm, s.View())
	require.Error(t, s.LastError())
	assert.Equal(t, "Your card was declined.", s.LastError().Error())

	assert.ErrorIs(t, p.Retry(), checkout.ErrClosed)

	kept, ok := s.Booking()
	require.True(t, ok)
	assert.Equal(t, "Lina", kept.ChildName)
	assert.Equal(t, "1-Day Adventure", kept.Plan.Name)
	draft, ok := s.Draft()
	require.True(t, ok)
	assert.Equal(t, "amal@example.com", draft.ParentEmail)
}

func TestResubmitAfterPaymentFailure(t *testing.T) {
	s := New()
	require.NoError(t, s.SelectPlan(2))
	first, err := s.SubmitBooking(validFields())
	require.NoError(t, err)

	p, err := s.BeginPayment(&stubRelay{}, &stubProvider{err: errors.New("Your card was declined.")})
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	p.ElementReady()
	require.Error(t, p.Submit(context.Background()))

	draft, ok := s.Draft()
	require.True(t, ok)
	second, err := s.SubmitBooking(draft)
	require.NoError(t, err)
	assert.Equal(t, ViewPaymentProcessor, s.View())
	assert.Equal(t, first.ChildName, second.ChildName)
	assert.NotEqual(t, first.Reference, second.Reference)
	assert.NoError(t, s.LastError())
}

func TestBeginPaymentRequiresBooking(t *testing.T) {
	s := New()
	_, err := s.BeginPayment(&stubRelay{}, &stubProvider{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, s.PaymentSucceeded(models.PaymentResult{}), ErrInvalidTransition)
	assert.ErrorIs(t, s.PaymentCancelled(), ErrInvalidTransition)
	assert.ErrorIs(t, s.PaymentFailed(errors.New("x")), ErrInvalidTransition)
}
