package extraction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesvoice/salesvoice/internal/transcribe"
)

func fixedClock() time.Time {
	return time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
}

func testEngine() *HeuristicEngine {
	return NewHeuristicEngine(nil, WithClock(fixedClock))
}

func suggestionFor(t *testing.T, seed *Seed, field string) Suggestion {
	t.Helper()
	for _, s := range seed.Suggestions {
		if s.Field == field {
			return s
		}
	}
	t.Fatalf("no suggestion for field %q", field)
	return Suggestion{}
}

func TestExtractThaiSalesNote(t *testing.T) {
	// The canonical voice note: talked with Khun Somchai of ABC company,
	// interested in ordering vegetables for 50000 baht.
	text := "คุยกับคุณสมชาย บริษัท ABC สนใจสั่งผัก 50000 บาท"

	seed, err := testEngine().Extract(context.Background(), text, nil)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, seed.Confidence, 0.70)
	assert.Equal(t, "sales", seed.Category)
	assert.Equal(t, "call", seed.ActivityType)
	assert.Equal(t, "medium", seed.Priority)
	assert.NotEmpty(t, seed.Title)
	assert.Equal(t, text, seed.Description)
	assert.Contains(t, seed.Tags, "sales")

	customer := suggestionFor(t, seed, FieldCustomerName)
	assert.Equal(t, "คุณสมชาย", customer.Value)
	assert.Equal(t, 0.65, customer.Confidence)
	assert.NotEmpty(t, customer.Reason)

	value := suggestionFor(t, seed, FieldEstimatedValue)
	assert.Equal(t, "50000", value.Value)
	assert.Equal(t, 0.55, value.Confidence)
}

func TestExtractIsDeterministic(t *testing.T) {
	text := "ประชุมกับคุณมาลี เรื่องใบเสนอราคา ติดตามสัปดาห์หน้า ด่วน"
	engine := testEngine()

	first, err := engine.Extract(context.Background(), text, nil)
	require.NoError(t, err)
	second, err := engine.Extract(context.Background(), text, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExtractEnglishNote(t *testing.T) {
	text := "Called Khun Malee about the quotation, urgent, send contract tomorrow. Reach her at malee@abc.co.th"

	seed, err := testEngine().Extract(context.Background(), text, nil)
	require.NoError(t, err)

	assert.Equal(t, "sales", seed.Category)
	assert.Equal(t, "call", seed.ActivityType)
	assert.Equal(t, "high", seed.Priority)
	assert.Contains(t, seed.Tags, "urgent")

	contact := suggestionFor(t, seed, FieldContactInfo)
	assert.Equal(t, "malee@abc.co.th", contact.Value)

	due := suggestionFor(t, seed, FieldDueDate)
	assert.Equal(t, "2025-06-11", due.Value)

	require.NotEmpty(t, seed.ActionItems)
}

func TestExtractPhoneNumber(t *testing.T) {
	seed, err := testEngine().Extract(context.Background(), "โทรกลับลูกค้าที่ 081-234-5678 เรื่องเคลมสินค้า", nil)
	require.NoError(t, err)

	contact := suggestionFor(t, seed, FieldContactInfo)
	assert.Equal(t, "081-234-5678", contact.Value)
	assert.Equal(t, "support", seed.Category)
}

func TestExtractThousandsSeparators(t *testing.T) {
	seed, err := testEngine().Extract(context.Background(), "ปิดดีลคุณสมศรี มูลค่า 1,250,000 บาท", nil)
	require.NoError(t, err)

	value := suggestionFor(t, seed, FieldEstimatedValue)
	assert.Equal(t, "1,250,000", value.Value)
}

func TestExtractEmptyAndGarbledText(t *testing.T) {
	engine := testEngine()

	for _, text := range []string{"", "   ", "!!! ... ???"} {
		seed, err := engine.Extract(context.Background(), text, nil)
		require.NoError(t, err)
		assert.Zero(t, seed.Confidence)
		assert.Empty(t, seed.Suggestions)
	}
}

func TestExtractCompanyFallbackForCustomer(t *testing.T) {
	seed, err := testEngine().Extract(context.Background(), "ประชุมกับบริษัท วิสาหกิจดี เรื่องสัญญาใหม่", nil)
	require.NoError(t, err)

	customer := suggestionFor(t, seed, FieldCustomerName)
	assert.Equal(t, 0.60, customer.Confidence)
	assert.Contains(t, customer.Value, "บริษัท")
}

func TestExtractHintsOutrankWeakerHeuristics(t *testing.T) {
	text := "คุยกับคุณสมชาย สนใจสั่งผัก 50000 บาท"
	hints := &transcribe.Hints{
		CustomerInfo: "คุณสมชาย ใจดี (บริษัท ABC)",
		DealInfo:     "มูลค่า 60,000 บาท",
		ActionItems:  []string{"ส่งใบเสนอราคาภายในศุกร์"},
		Summary:      "สั่งผัก 50,000 บาท จากคุณสมชาย",
	}

	seed, err := testEngine().Extract(context.Background(), text, hints)
	require.NoError(t, err)

	customer := suggestionFor(t, seed, FieldCustomerName)
	assert.Equal(t, "คุณสมชาย ใจดี (บริษัท ABC)", customer.Value)
	assert.Equal(t, 0.80, customer.Confidence)

	value := suggestionFor(t, seed, FieldEstimatedValue)
	assert.Equal(t, "60,000", value.Value)

	assert.Contains(t, seed.ActionItems, "ส่งใบเสนอราคาภายในศุกร์")
	assert.Equal(t, "สั่งผัก 50,000 บาท จากคุณสมชาย", seed.Title)
}

func TestSuggestionOrderingIsStable(t *testing.T) {
	text := "โทรหาคุณสมชาย 081-234-5678 สั่งของ 9,000 บาท ติดตามพรุ่งนี้"
	seed, err := testEngine().Extract(context.Background(), text, nil)
	require.NoError(t, err)

	var fields []string
	for _, s := range seed.Suggestions {
		fields = append(fields, s.Field)
	}
	assert.Equal(t, []string{
		FieldCustomerName,
		FieldContactInfo,
		FieldEstimatedValue,
		FieldPriority,
		FieldCategory,
		FieldActivityType,
		FieldDueDate,
	}, fields)
}
