package orders

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/canteen-backend/api/middleware"
	internalorders "github.com/angelmondragon/canteen-backend/internal/orders"
	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/pagination"
)

type fakeCheckout struct {
	orders []models.Order
	err    error
}

func (f fakeCheckout) Checkout(context.Context, uuid.UUID) ([]models.Order, error) {
	return f.orders, f.err
}

type fakeOrders struct {
	cancelRequester *uuid.UUID
	cancelCalled    bool
	getRequester    *uuid.UUID
	advanced        enums.OrderStatus
	listParams      pagination.Params
	order           models.Order
	refund          internalorders.Refund
	err             error
}

func (f *fakeOrders) Cancel(_ context.Context, _ uuid.UUID, requester *uuid.UUID) (*internalorders.CancelResult, error) {
	f.cancelCalled = true
	f.cancelRequester = requester
	if f.err != nil {
		return nil, f.err
	}
	return &internalorders.CancelResult{Order: &f.order, Refund: f.refund}, nil
}

func (f *fakeOrders) Advance(_ context.Context, _ uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	f.advanced = next
	return &f.order, f.err
}

func (f *fakeOrders) Get(_ context.Context, _ uuid.UUID, requester *uuid.UUID) (*models.Order, error) {
	f.getRequester = requester
	return &f.order, f.err
}

func (f *fakeOrders) ListForAccount(_ context.Context, _ uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
	f.listParams = params
	return &internalorders.OrderList{Orders: []models.Order{f.order}, Cursor: "next"}, f.err
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
}

func request(method, target, body string, accountID uuid.UUID, role enums.AccountRole, orderID string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rctx := chi.NewRouteContext()
	if orderID != "" {
		rctx.URLParams.Add("orderId", orderID)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(middleware.WithAccount(ctx, accountID, role))
}

func sampleOrder(accountID uuid.UUID) models.Order {
	return models.Order{
		ID:        uuid.New(),
		AccountID: accountID,
		MenuID:    uuid.New(),
		PlacedAt:  time.Date(2026, 3, 2, 11, 30, 0, 0, time.UTC),
		Lines: []models.OrderLine{{
			ID:       uuid.New(),
			Name:     "curry",
			Quantity: 2,
		}},
	}
}

func TestCheckoutReturnsCreatedOrders(t *testing.T) {
	accountID := uuid.New()
	svc := fakeCheckout{orders: []models.Order{sampleOrder(accountID), sampleOrder(accountID)}}

	resp := httptest.NewRecorder()
	Checkout(svc, quietLogger())(resp, request(http.MethodPost, "/api/v1/orders/checkout", "", accountID, enums.AccountRoleUser, ""))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	var envelope struct {
		Data []struct {
			ID    uuid.UUID         `json:"id"`
			Lines []json.RawMessage `json:"lines"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Data) != 2 || len(envelope.Data[0].Lines) != 1 {
		t.Fatalf("unexpected payload %s", resp.Body.String())
	}
}

func TestCheckoutMapsBalanceError(t *testing.T) {
	svc := fakeCheckout{err: pkgerrors.New(pkgerrors.CodeBalance, "insufficient balance")}

	resp := httptest.NewRecorder()
	Checkout(svc, quietLogger())(resp, request(http.MethodPost, "/api/v1/orders/checkout", "", uuid.New(), enums.AccountRoleUser, ""))
	if resp.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 got %d", resp.Code)
	}
}

func TestListPassesPagination(t *testing.T) {
	accountID := uuid.New()
	svc := &fakeOrders{order: sampleOrder(accountID)}

	resp := httptest.NewRecorder()
	List(svc, quietLogger())(resp, request(http.MethodGet, "/api/v1/orders?limit=10&cursor=abc", "", accountID, enums.AccountRoleUser, ""))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.listParams.Limit != 10 || svc.listParams.Cursor != "abc" {
		t.Fatalf("unexpected params %+v", svc.listParams)
	}
	if !strings.Contains(resp.Body.String(), `"cursor":"next"`) {
		t.Fatalf("expected cursor in body: %s", resp.Body.String())
	}
}

func TestListRejectsOversizedLimit(t *testing.T) {
	svc := &fakeOrders{}

	resp := httptest.NewRecorder()
	List(svc, quietLogger())(resp, request(http.MethodGet, "/api/v1/orders?limit=1000", "", uuid.New(), enums.AccountRoleUser, ""))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDetailScopesNonStaffToOwnOrders(t *testing.T) {
	accountID := uuid.New()
	svc := &fakeOrders{order: sampleOrder(accountID)}

	resp := httptest.NewRecorder()
	Detail(svc, quietLogger())(resp, request(http.MethodGet, "/api/v1/orders/x", "", accountID, enums.AccountRoleUser, svc.order.ID.String()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.getRequester == nil || *svc.getRequester != accountID {
		t.Fatalf("expected requester to be the caller")
	}

	staff := &fakeOrders{order: sampleOrder(accountID)}
	resp = httptest.NewRecorder()
	Detail(staff, quietLogger())(resp, request(http.MethodGet, "/api/v1/orders/x", "", uuid.New(), enums.AccountRoleStaff, staff.order.ID.String()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if staff.getRequester != nil {
		t.Fatalf("staff reads must not be scoped")
	}
}

func TestDetailRejectsMalformedID(t *testing.T) {
	svc := &fakeOrders{}

	resp := httptest.NewRecorder()
	Detail(svc, quietLogger())(resp, request(http.MethodGet, "/api/v1/orders/x", "", uuid.New(), enums.AccountRoleUser, "not-a-uuid"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCancelReturnsRefund(t *testing.T) {
	accountID := uuid.New()
	svc := &fakeOrders{
		order:  sampleOrder(accountID),
		refund: internalorders.Refund{Point: 10, Credit: 30},
	}

	resp := httptest.NewRecorder()
	Cancel(svc, quietLogger())(resp, request(http.MethodPost, "/api/v1/orders/x/cancel", "", accountID, enums.AccountRoleUser, svc.order.ID.String()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.cancelRequester == nil || *svc.cancelRequester != accountID {
		t.Fatalf("expected cancel to be scoped to the caller")
	}

	var envelope struct {
		Data struct {
			Refund refundResponse `json:"refund"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Refund != (refundResponse{Point: 10, Credit: 30, Total: 40}) {
		t.Fatalf("unexpected refund %+v", envelope.Data.Refund)
	}
}

func TestCancelMapsStateConflict(t *testing.T) {
	svc := &fakeOrders{err: pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be canceled")}

	resp := httptest.NewRecorder()
	Cancel(svc, quietLogger())(resp, request(http.MethodPost, "/api/v1/orders/x/cancel", "", uuid.New(), enums.AccountRoleUser, uuid.NewString()))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestStaffCancelIsUnscoped(t *testing.T) {
	svc := &fakeOrders{order: sampleOrder(uuid.New())}

	resp := httptest.NewRecorder()
	StaffCancel(svc, quietLogger())(resp, request(http.MethodPost, "/api/v1/staff/orders/x/cancel", "", uuid.New(), enums.AccountRoleStaff, svc.order.ID.String()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !svc.cancelCalled || svc.cancelRequester != nil {
		t.Fatalf("expected an unscoped cancel")
	}
}

func TestStaffAdvanceValidatesStatus(t *testing.T) {
	svc := &fakeOrders{order: sampleOrder(uuid.New())}

	resp := httptest.NewRecorder()
	StaffAdvance(svc, quietLogger())(resp, request(http.MethodPost, "/api/v1/staff/orders/x/status", `{"status":"canceled"}`, uuid.New(), enums.AccountRoleStaff, svc.order.ID.String()))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.advanced != "" {
		t.Fatalf("service must not be called for an invalid status")
	}

	resp = httptest.NewRecorder()
	StaffAdvance(svc, quietLogger())(resp, request(http.MethodPost, "/api/v1/staff/orders/x/status", `{"status":"ready"}`, uuid.New(), enums.AccountRoleStaff, svc.order.ID.String()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", resp.Code, resp.Body.String())
	}
	if svc.advanced != enums.OrderStatusReady {
		t.Fatalf("expected ready, got %q", svc.advanced)
	}
}
