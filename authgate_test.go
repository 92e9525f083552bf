package authgate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/authgate-io/authgate/broker"
	"github.com/authgate-io/authgate/token"
)

type fakeDirectory struct {
	mu         sync.Mutex
	byNational map[string]*UserRecord
	byCompany  map[string]*UserRecord
	byID       map[string]*UserRecord
	roles      map[string][]string
	lastLogin  []string
	nextID     int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		byNational: make(map[string]*UserRecord),
		byCompany:  make(map[string]*UserRecord),
		byID:       make(map[string]*UserRecord),
		roles:      make(map[string][]string),
	}
}

func (d *fakeDirectory) add(u *UserRecord) {
	if u.NationalCode != "" {
		d.byNational[u.NationalCode] = u
	}
	if u.CompanyCode != "" {
		d.byCompany[u.CompanyCode] = u
	}
	if u.ID != "" {
		d.byID[u.ID] = u
	}
}

func (d *fakeDirectory) ByNationalCode(_ context.Context, code string) (*UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok := d.byNational[code]; ok {
		return u, nil
	}
	return nil, ErrUserDoesNotExist
}

func (d *fakeDirectory) ByCompanyCode(_ context.Context, code string) (*UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok := d.byCompany[code]; ok {
		return u, nil
	}
	return nil, ErrUserDoesNotExist
}

func (d *fakeDirectory) ByID(_ context.Context, id string) (*UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok := d.byID[id]; ok {
		return u, nil
	}
	return nil, ErrUserDoesNotExist
}

func (d *fakeDirectory) Create(_ context.Context, record *UserRecord) (*UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	created := *record
	if created.ID == "" {
		d.nextID++
		created.ID = fmt.Sprintf("u%d", d.nextID)
	}
	d.add(&created)
	return &created, nil
}

func (d *fakeDirectory) EnsureRole(_ context.Context, platform string, names []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.roles[platform] = names
	return nil
}

func (d *fakeDirectory) TouchLastLogin(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastLogin = append(d.lastLogin, id)
	return nil
}

type sentSMS struct {
	phone string
	text  string
}

type fakeNotifier struct {
	ch chan sentSMS
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{ch: make(chan sentSMS, 16)}
}

func (n *fakeNotifier) Send(_ context.Context, phone, text string) error {
	n.ch <- sentSMS{phone: phone, text: text}
	return nil
}

func (n *fakeNotifier) wait(t *testing.T) sentSMS {
	t.Helper()
	select {
	case sms := <-n.ch:
		return sms
	case <-time.After(2 * time.Second):
		t.Fatal("notification not dispatched")
		return sentSMS{}
	}
}

type fakePasswords struct{}

func (fakePasswords) Verify(hash, plain string) bool {
	return hash == "hash:"+plain
}

type testHarness struct {
	service  *Service
	redis    *miniredis.Miniredis
	dir      *fakeDirectory
	notifier *fakeNotifier
	bus      *broker.Memory
}

func newTestService(t *testing.T) *testHarness {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	dir := newFakeDirectory()
	notifier := newFakeNotifier()
	bus := broker.NewMemory(nil)

	cfg := defaultConfig()
	cfg.Token.Secret = []byte("test-secret-0123456789")

	service, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithBroker(bus).
		WithUserDirectory(dir).
		WithNotifier(notifier).
		WithPasswordVerifier(fakePasswords{}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(service.Close)

	return &testHarness{
		service:  service,
		redis:    mr,
		dir:      dir,
		notifier: notifier,
		bus:      bus,
	}
}

// storedCode reads the live verification record straight from the cache.
func (h *testHarness) storedCode(t *testing.T, phone string) *verificationRecord {
	t.Helper()

	data, err := h.redis.Get("pv:" + phone)
	if err != nil {
		return nil
	}
	record := &verificationRecord{}
	if err := json.Unmarshal([]byte(data), record); err != nil {
		t.Fatalf("corrupt verification record: %v", err)
	}
	return record
}

func realUserRecord(nationalCode, phone string) *UserRecord {
	return &UserRecord{
		ID:           "u-" + nationalCode,
		Kind:         token.UserReal,
		NationalCode: nationalCode,
		Phone:        phone,
		PasswordHash: "hash:secret",
		Roles: []token.RoleGrant{
			{Platform: "shop", Names: []string{"customer"}},
		},
	}
}
