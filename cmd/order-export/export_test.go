package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manubal/storefront/internal/domain/customer"
	"github.com/manubal/storefront/internal/domain/order"
)

type fakeSource struct {
	orders []*order.Detail
	since  time.Time
	failAt int
}

func (f *fakeSource) ExportSince(_ context.Context, since time.Time, emit func(*order.Detail) error) error {
	f.since = since
	for i, d := range f.orders {
		if f.failAt > 0 && i == f.failAt {
			return errors.New("connection lost")
		}
		if err := emit(d); err != nil {
			return err
		}
	}
	return nil
}

func detail(id int64) *order.Detail {
	placed := time.Date(2026, 1, 9, 9, 5, 0, 0, time.UTC)
	return &order.Detail{
		Order: order.Order{
			ID:         id,
			CustomerID: 3,
			Totals: order.Totals{
				Subtotal: decimal.RequireFromString("1048.5"),
				Shipping: decimal.NewFromInt(50),
				Tax:      decimal.RequireFromString("52.43"),
				Total:    decimal.RequireFromString("1150.93"),
			},
			Status:    order.StatusPending,
			CreatedAt: placed,
			UpdatedAt: placed,
		},
		Customer: customer.Contact{FirstName: "Asha", LastName: "Rao", Email: "asha@example.com", City: "Pune"},
		Items: []order.Item{{
			ProductID: "jute-basket",
			Name:      "Jute Storage Basket",
			Price:     decimal.RequireFromString("349.5"),
			Quantity:  3,
			Total:     decimal.RequireFromString("1048.5"),
		}},
	}
}

func readRecords(t *testing.T, r io.Reader) []record {
	t.Helper()
	zr, err := pgzip.NewReader(r)
	require.NoError(t, err)
	defer func() { _ = zr.Close() }()

	var out []record
	sc := bufio.NewScanner(zr)
	for sc.Scan() {
		var rec record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		out = append(out, rec)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestExport(t *testing.T) {
	src := &fakeSource{orders: []*order.Detail{detail(1), detail(2), detail(3)}}
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	n, err := export(context.Background(), src, since, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, since, src.since)

	recs := readRecords(t, &buf)
	require.Len(t, recs, 3)
	first := recs[0]
	assert.EqualValues(t, 1, first.ID)
	assert.Equal(t, "1150.93", first.Total)
	assert.Equal(t, "50.00", first.Shipping)
	assert.Equal(t, "Asha Rao", first.Customer.Name)
	require.Len(t, first.Items, 1)
	assert.Equal(t, "349.50", first.Items[0].Price)
	assert.Equal(t, 3, first.Items[0].Quantity)
}

func TestExport_Empty(t *testing.T) {
	var buf bytes.Buffer
	n, err := export(context.Background(), &fakeSource{}, time.Time{}, &buf)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, readRecords(t, &buf))
}

func TestExport_SourceFailure(t *testing.T) {
	src := &fakeSource{orders: []*order.Detail{detail(1), detail(2)}, failAt: 1}

	_, err := export(context.Background(), src, time.Time{}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection lost")
}

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 3, 15, 18, 30, 0, 0, time.UTC)

	got, err := parseSince("", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC), got)

	got, err = parseSince("2025-12-01", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = parseSince("01/12/2025", now)
	assert.Error(t, err)
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	if in.Body != nil {
		f.body, _ = io.ReadAll(in.Body)
	}
	return &s3.PutObjectOutput{}, f.err
}

func TestUpload(t *testing.T) {
	file := filepath.Join(t.TempDir(), "orders-2026-01-01.jsonl.gz")
	require.NoError(t, os.WriteFile(file, []byte("payload"), 0o600))

	putter := &fakePutter{}
	key, err := upload(context.Background(), putter, "exports", "exports/orders/", file)
	require.NoError(t, err)

	assert.Equal(t, "exports/orders/orders-2026-01-01.jsonl.gz", key)
	assert.Equal(t, "exports", aws.ToString(putter.input.Bucket))
	assert.Equal(t, key, aws.ToString(putter.input.Key))
	assert.Equal(t, "gzip", aws.ToString(putter.input.ContentEncoding))
	assert.Equal(t, []byte("payload"), putter.body)

	putter.err = errors.New("access denied")
	_, err = upload(context.Background(), putter, "exports", "", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://exports/orders-2026-01-01.jsonl.gz")
}
