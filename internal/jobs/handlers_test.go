package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mossline/pos-engine/internal/common"
	"github.com/mossline/pos-engine/internal/events"
	"github.com/mossline/pos-engine/internal/lock"
	"github.com/mossline/pos-engine/internal/loyalty"
	"github.com/mossline/pos-engine/internal/order"
	"github.com/mossline/pos-engine/internal/pricing"
	"github.com/mossline/pos-engine/internal/receipt"
)

var testLoyaltyCfg = loyalty.Config{
	PointsPerDollar:    10,
	RedemptionRateBps:  10000,
	SilverMin:          1000,
	GoldMin:            5000,
	PlatinumMin:        10000,
	BronzeMultiplier:   10000,
	SilverMultiplier:   11000,
	GoldMultiplier:     12500,
	PlatinumMultiplier: 15000,
}

type memAccounts struct {
	accounts map[string]loyalty.Account
}

func (m *memAccounts) Get(_ context.Context, customerID string) (loyalty.Account, error) {
	return m.accounts[customerID], nil
}

func (m *memAccounts) Accrue(_ context.Context, customerID string, points int64) (loyalty.Account, error) {
	a := m.accounts[customerID]
	a.CustomerID = customerID
	a.TotalPointsEarned += points
	a.PointsBalance += points
	m.accounts[customerID] = a
	return a, nil
}

type memEmitter struct {
	topics []string
}

func (e *memEmitter) Emit(_ context.Context, topic, aggregateID string, _ any) (events.Event, error) {
	e.topics = append(e.topics, topic)
	return events.Event{ID: aggregateID, Topic: topic}, nil
}

func newLockClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestLoyaltyHandlerAccruesPoints(t *testing.T) {
	accounts := &memAccounts{accounts: map[string]loyalty.Account{}}
	emitter := &memEmitter{}
	h := &LoyaltyHandler{
		Accounts: accounts,
		Config:   testLoyaltyCfg,
		Locker:   lock.Locker{R: newLockClient(t), RetryBackoff: time.Millisecond},
		Events:   emitter,
		Logger:   zerolog.Nop(),
	}

	task, err := NewLoyaltyAccrueTask(LoyaltyAccruePayload{OrderID: "o1", CustomerID: "c1", Spend: 4500})
	require.NoError(t, err)
	require.NoError(t, h.ProcessTask(context.Background(), task))

	// $45.00 at bronze: 45 whole dollars x 10 points
	require.EqualValues(t, 450, accounts.accounts["c1"].PointsBalance)
	require.Contains(t, emitter.topics, events.TopicLoyaltyAccrued)
}

func TestLoyaltyHandlerUsesTierAtAccrualTime(t *testing.T) {
	accounts := &memAccounts{accounts: map[string]loyalty.Account{
		"c2": {CustomerID: "c2", TotalPointsEarned: 12000, PointsBalance: 12000},
	}}
	h := &LoyaltyHandler{
		Accounts: accounts,
		Config:   testLoyaltyCfg,
		Locker:   lock.Locker{R: newLockClient(t), RetryBackoff: time.Millisecond},
		Logger:   zerolog.Nop(),
	}

	task, err := NewLoyaltyAccrueTask(LoyaltyAccruePayload{OrderID: "o2", CustomerID: "c2", Spend: 4500})
	require.NoError(t, err)
	require.NoError(t, h.ProcessTask(context.Background(), task))

	// platinum multiplier 1.5x: 450 base points become 675
	require.EqualValues(t, 12675, accounts.accounts["c2"].PointsBalance)
}

func TestLoyaltyHandlerSkipsWalkIns(t *testing.T) {
	accounts := &memAccounts{accounts: map[string]loyalty.Account{}}
	h := &LoyaltyHandler{
		Accounts: accounts,
		Config:   testLoyaltyCfg,
		Locker:   lock.Locker{R: newLockClient(t), RetryBackoff: time.Millisecond},
		Logger:   zerolog.Nop(),
	}

	task, err := NewLoyaltyAccrueTask(LoyaltyAccruePayload{OrderID: "o3", Spend: 4500})
	require.NoError(t, err)
	require.NoError(t, h.ProcessTask(context.Background(), task))
	require.Empty(t, accounts.accounts)
}

type memOrders struct {
	order order.Order
}

func (m *memOrders) Get(context.Context, string, string) (order.Order, error) {
	return m.order, nil
}

func TestReceiptHandlerRendersAndStores(t *testing.T) {
	client := newLockClient(t)
	receipts := &receipt.Store{Client: client, TTL: time.Hour}
	mail := &common.InMemoryEmail{}
	h := &ReceiptHandler{
		Orders: &memOrders{order: order.Order{
			ID:            "o1",
			StoreID:       "store1",
			ReceiptNumber: "R-7",
			Currency:      "USD",
			Pricing:       pricing.Summary{Subtotal: 1125, Tax: 79, Tip: 203, Total: 1407},
			Lines:         []order.Line{{Name: "Espresso", Quantity: 2, UnitPrice: 350, Total: 700}},
			CreatedAt:     time.Now(),
		}},
		Receipts:  receipts,
		Mail:      mail,
		StoreName: "Mossline Cafe",
		Logger:    zerolog.Nop(),
	}

	task, err := NewReceiptRenderTask(ReceiptRenderPayload{OrderID: "o1", StoreID: "store1", Email: "ada@example.com"})
	require.NoError(t, err)
	require.NoError(t, h.ProcessTask(context.Background(), task))

	pdf, err := receipts.Load(context.Background(), "store1", "o1")
	require.NoError(t, err)
	require.NotEmpty(t, pdf)
	require.Len(t, mail.Outbox, 1)
	require.Equal(t, "ada@example.com", mail.Outbox[0].To)
}

type captureEnqueuer struct {
	tasks []*asynq.Task
}

func (c *captureEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	c.tasks = append(c.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func TestNotifierEnqueuesOnCapture(t *testing.T) {
	enq := &captureEnqueuer{}
	n := Notifier{Client: enq, StoreID: "store1"}

	err := n.Notify(context.Background(), events.Event{
		Topic:   events.TopicPaymentCaptured,
		Payload: []byte(`{"orderId":"o1","customerId":"c1","total":1407,"tip":203}`),
	})
	require.NoError(t, err)
	require.Len(t, enq.tasks, 2)
	require.Equal(t, TypeLoyaltyAccrue, enq.tasks[0].Type())
	require.Equal(t, TypeReceiptRender, enq.tasks[1].Type())
}

func TestNotifierIgnoresOtherTopics(t *testing.T) {
	enq := &captureEnqueuer{}
	n := Notifier{Client: enq, StoreID: "store1"}

	err := n.Notify(context.Background(), events.Event{Topic: events.TopicOrderCreated, Payload: []byte(`{}`)})
	require.NoError(t, err)
	require.Empty(t, enq.tasks)
}

func TestNotifierSkipsLoyaltyForWalkIns(t *testing.T) {
	enq := &captureEnqueuer{}
	n := Notifier{Client: enq, StoreID: "store1"}

	err := n.Notify(context.Background(), events.Event{
		Topic:   events.TopicPaymentCaptured,
		Payload: []byte(`{"orderId":"o1","total":1407,"tip":203}`),
	})
	require.NoError(t, err)
	require.Len(t, enq.tasks, 1)
	require.Equal(t, TypeReceiptRender, enq.tasks[0].Type())
}
