package service

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tzelon/thunder-mail/internal/model"
)

const testHost = "https://mail.example.com"

func TestInsertTrackingPixel(t *testing.T) {
	email := &model.OutboundEmail{HTML: "<p>Hi</p>", TrackingID: "tid-1"}

	require.NoError(t, InsertTrackingPixel(testHost, email))
	assert.Contains(t, email.HTML, testHost+"/trackopen/tid-1")
	assert.Contains(t, email.HTML, "display:none")
}

func TestInsertTrackingPixelTextOnly(t *testing.T) {
	email := &model.OutboundEmail{Text: "Hi", TrackingID: "tid-1"}

	require.NoError(t, InsertTrackingPixel(testHost, email))
	assert.Empty(t, email.HTML)
	assert.Equal(t, "Hi", email.Text)
}

func TestInsertUnsubscribeLink(t *testing.T) {
	email := &model.OutboundEmail{Text: "Hi", HTML: "<p>Hi</p>", TrackingID: "tid-2"}

	require.NoError(t, InsertUnsubscribeLink(testHost, email))
	assert.Contains(t, email.Text, testHost+"/unsubscribe/tid-2")
	assert.Contains(t, email.HTML, "<a href=\""+testHost+"/unsubscribe/tid-2\">unsubscribe</a>")
}

func TestWrapLinksRewritesAnchors(t *testing.T) {
	email := &model.OutboundEmail{
		HTML:       `<p>Check <a href="https://example.org/docs">the docs</a></p>`,
		TrackingID: "tid-3",
	}

	require.NoError(t, WrapLinks(testHost, email))
	assert.Contains(t, email.HTML, testHost+"/clickthrough/tid-3?url="+url.QueryEscape("https://example.org/docs"))
	assert.Contains(t, email.HTML, ">the docs</a>")
	assert.NotContains(t, email.HTML, `href="https://example.org/docs"`)
}

func TestWrapLinksSkipsTrackingLinks(t *testing.T) {
	unsubscribe := testHost + "/unsubscribe/tid-4"
	email := &model.OutboundEmail{
		HTML:       `<a href="` + unsubscribe + `">unsubscribe</a>`,
		TrackingID: "tid-4",
	}

	require.NoError(t, WrapLinks(testHost, email))
	assert.Contains(t, email.HTML, `href="`+unsubscribe+`"`)
	assert.NotContains(t, email.HTML, "/clickthrough/")
}

func TestApplyAnalyticsFullPipeline(t *testing.T) {
	email := &model.OutboundEmail{
		Text:       "Hi Amos",
		HTML:       `<p>Hi Amos, see <a href="https://example.org">this</a></p>`,
		TrackingID: "tid-5",
	}

	require.NoError(t, ApplyAnalytics(testHost, email, AnalyticsTransforms))

	// pixel and unsubscribe footer are present
	assert.Contains(t, email.HTML, testHost+"/trackopen/tid-5")
	assert.Contains(t, email.HTML, testHost+"/unsubscribe/tid-5")
	assert.Contains(t, email.Text, testHost+"/unsubscribe/tid-5")

	// the original anchor was wrapped, the injected unsubscribe anchor was not
	assert.Contains(t, email.HTML, testHost+"/clickthrough/tid-5?url="+url.QueryEscape("https://example.org"))
	assert.Equal(t, 1, strings.Count(email.HTML, "/clickthrough/"))
	assert.Contains(t, email.HTML, `href="`+testHost+`/unsubscribe/tid-5"`)
}

func TestApplyAnalyticsTextOnlyEmail(t *testing.T) {
	email := &model.OutboundEmail{Text: "Hi", TrackingID: "tid-6"}

	require.NoError(t, ApplyAnalytics(testHost, email, AnalyticsTransforms))
	assert.Empty(t, email.HTML)
	assert.Contains(t, email.Text, testHost+"/unsubscribe/tid-6")
}
