package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/GriffinCanCode/feedproxy/internal/feed"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// Page is a rod-backed feed.Page.
type Page struct {
	page     *rod.Page
	domQuiet time.Duration
	logger   *zap.Logger
}

// Navigate implements feed.Page.
func (p *Page) Navigate(ctx context.Context, url string) (*feed.DocumentResponse, error) {
	page := p.page.Context(ctx)

	var doc *proto.NetworkResponseReceived
	waitDoc := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		if e.FrameID != "" && e.FrameID != page.FrameID {
			return false
		}
		doc = e
		return true
	})
	waitReady := page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)

	if err := page.Navigate(url); err != nil {
		return nil, err
	}
	waitReady()
	waitDoc()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc == nil || doc.Response == nil {
		return nil, nil
	}

	resp := &feed.DocumentResponse{
		URL:         doc.Response.URL,
		Status:      doc.Response.Status,
		ContentType: contentType(doc.Response),
	}

	body, err := proto.NetworkGetResponseBody{RequestID: doc.RequestID}.Call(page)
	if err != nil {
		p.logger.Debug("document body unavailable", zap.String("url", resp.URL), zap.Error(err))
		return resp, nil
	}
	if body.Base64Encoded {
		raw, err := base64.StdEncoding.DecodeString(body.Body)
		if err != nil {
			return resp, nil
		}
		resp.Body = raw
	} else {
		resp.Body = []byte(body.Body)
	}
	return resp, nil
}

// WaitStable implements feed.Page: the load event, then a DOM that stays
// unchanged for domQuiet.
func (p *Page) WaitStable(ctx context.Context) error {
	page := p.page.Context(ctx)
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	if err := page.WaitDOMStable(p.domQuiet, 0); err != nil {
		return fmt.Errorf("wait dom stable: %w", err)
	}
	return nil
}

// URL implements feed.Page.
func (p *Page) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// serializeDocument returns the root element markup. XML documents have
// no <html> element, so rod's Page.HTML would wait for one until ctx ends.
const serializeDocument = `() => document.documentElement ? document.documentElement.outerHTML : ""`

// HTML implements feed.Page.
func (p *Page) HTML(ctx context.Context) (string, error) {
	res, err := p.page.Context(ctx).Eval(serializeDocument)
	if err != nil {
		return "", fmt.Errorf("serialize document: %w", err)
	}
	return res.Value.Str(), nil
}

// Screenshot implements feed.Page.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// contentType prefers the Content-Type header over Chromium's MIME guess.
func contentType(r *proto.NetworkResponse) string {
	for name, value := range r.Headers {
		if strings.EqualFold(name, "Content-Type") {
			return value.Str()
		}
	}
	return r.MIMEType
}
