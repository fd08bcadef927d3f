package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"go.uber.org/zap"

	"github.com/georgemunganga/printa-retail/internal/errs"
)

func TestRedisWriteField(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRedis(db, "t:", zap.NewNop())
	ctx := context.Background()

	mock.ExpectTxPipeline()
	mock.ExpectHSet("t:products/p1", "quantity", "4").SetVal(0)
	mock.ExpectSAdd("t:products", "p1").SetVal(0)
	mock.ExpectPublish("t:changes:products", "products").SetVal(1)
	mock.ExpectPublish("t:changes:products/p1", "products/p1").SetVal(0)
	mock.ExpectTxPipelineExec()

	if err := r.Write(ctx, "products/p1/quantity", 4); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRedisAtomicUpdateSpansRecords(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRedis(db, "t:", zap.NewNop())
	ctx := context.Background()

	mock.ExpectTxPipeline()
	mock.ExpectHSet("t:products/p1", "quantity", "0").SetVal(0)
	mock.ExpectSAdd("t:products", "p1").SetVal(0)
	mock.ExpectHSet("t:products/p2", "quantity", "7").SetVal(0)
	mock.ExpectSAdd("t:products", "p2").SetVal(0)
	mock.ExpectPublish("t:changes:products", "products").SetVal(1)
	mock.ExpectPublish("t:changes:products/p1", "products/p1").SetVal(0)
	mock.ExpectPublish("t:changes:products/p2", "products/p2").SetVal(0)
	mock.ExpectTxPipelineExec()

	err := r.AtomicUpdate(ctx, map[string]interface{}{
		"products/p2/quantity": 7,
		"products/p1/quantity": 0,
	})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRedisWriteRecordReplacesHash(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRedis(db, "t:", zap.NewNop())
	ctx := context.Background()

	mock.ExpectTxPipeline()
	mock.ExpectDel("t:products/p1").SetVal(1)
	mock.ExpectHSet("t:products/p1", "name", `"Pen"`, "quantity", "3").SetVal(2)
	mock.ExpectSAdd("t:products", "p1").SetVal(1)
	mock.ExpectPublish("t:changes:products", "products").SetVal(1)
	mock.ExpectPublish("t:changes:products/p1", "products/p1").SetVal(0)
	mock.ExpectTxPipelineExec()

	err := r.Write(ctx, "products/p1", map[string]interface{}{"name": "Pen", "quantity": 3})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRedisRemoveRecord(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRedis(db, "", zap.NewNop())
	ctx := context.Background()

	mock.ExpectTxPipeline()
	mock.ExpectDel("cart/u1").SetVal(1)
	mock.ExpectSRem("cart", "u1").SetVal(1)
	mock.ExpectPublish("changes:cart", "cart").SetVal(0)
	mock.ExpectPublish("changes:cart/u1", "cart/u1").SetVal(0)
	mock.ExpectTxPipelineExec()

	if err := r.Remove(ctx, "cart/u1"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRedisReadCollection(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRedis(db, "t:", zap.NewNop())
	ctx := context.Background()

	mock.ExpectSMembers("t:products").SetVal([]string{"p2", "p1"})
	mock.ExpectHGetAll("t:products/p1").SetVal(map[string]string{"name": `"Pen"`, "quantity": "3"})
	mock.ExpectHGetAll("t:products/p2").SetVal(map[string]string{})

	v, err := r.ReadOnce(ctx, "products")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	products := AsMap(v)
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	p1 := AsMap(products["p1"])
	if p1["name"] != "Pen" || p1["quantity"] != json.Number("3") {
		t.Errorf("unexpected record %v", p1)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRedisReadMissingField(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRedis(db, "", zap.NewNop())

	mock.ExpectHGet("users/u1", "role").RedisNil()

	v, err := r.ReadOnce(context.Background(), "users/u1/role")
	if err != nil || v != nil {
		t.Errorf("expected nil value and no error, got %v, %v", v, err)
	}
}

func TestRedisFailedUpdateIsStoreWrite(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRedis(db, "", zap.NewNop())

	mock.ExpectTxPipeline()
	mock.ExpectHSet("products/p1", "quantity", "1").SetErr(errors.New("connection refused"))
	mock.ExpectSAdd("products", "p1").SetErr(errors.New("connection refused"))
	mock.ExpectPublish("changes:products", "products").SetErr(errors.New("connection refused"))
	mock.ExpectPublish("changes:products/p1", "products/p1").SetErr(errors.New("connection refused"))
	mock.ExpectTxPipelineExec()

	err := r.Write(context.Background(), "products/p1/quantity", 1)
	if !errors.Is(err, errs.ErrStoreWrite) {
		t.Errorf("expected ErrStoreWrite, got %v", err)
	}
}

func TestRedisRejectsDeepPaths(t *testing.T) {
	db, _ := redismock.NewClientMock()
	r := NewRedis(db, "", zap.NewNop())
	if err := r.Write(context.Background(), "a/b/c/d", 1); err == nil {
		t.Error("expected error for unsupported depth")
	}
}
