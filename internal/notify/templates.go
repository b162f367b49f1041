package notify

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/go-faster/errors"
)

//go:embed templates/*
var templateFS embed.FS

// pair is the HTML and plain-text rendering of one email.
type pair struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

func loadPair(name string) (pair, error) {
	h, err := htmltemplate.ParseFS(templateFS, "templates/"+name+".html")
	if err != nil {
		return pair{}, errors.Wrapf(err, "parse %s.html", name)
	}
	t, err := texttemplate.ParseFS(templateFS, "templates/"+name+".txt")
	if err != nil {
		return pair{}, errors.Wrapf(err, "parse %s.txt", name)
	}
	return pair{html: h, text: t}, nil
}

func (p pair) render(data any) (html, text string, err error) {
	var hb, tb bytes.Buffer
	if err := p.html.Execute(&hb, data); err != nil {
		return "", "", errors.Wrap(err, "render html")
	}
	if err := p.text.Execute(&tb, data); err != nil {
		return "", "", errors.Wrap(err, "render text")
	}
	return hb.String(), tb.String(), nil
}

type lineView struct {
	Name     string
	Quantity int
	Price    string
	Total    string
}

type confirmationView struct {
	CustomerName string
	OrderID      int64
	OrderDate    string
	Items        []lineView
	Subtotal     string
	Shipping     string
	Tax          string
	Total        string
	Address      string
	City         string
	State        string
	ZipCode      string
	OrderURL     string
	SupportEmail string
}

type shipmentView struct {
	CustomerName   string
	OrderID        int64
	TrackingNumber string
	TrackingURL    string
	SupportEmail   string
}
