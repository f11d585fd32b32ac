package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

const maxBodySize = 64 << 10

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return errors.Wrapf(errBadRequest, format, args...)
}

// decodeObject reads a JSON object body and calls field for every key.
// Unknown keys must be skipped by field.
func decodeObject(w http.ResponseWriter, r *http.Request, field func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return badRequest("read body: %v", err)
	}
	if err := jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
		return field(d, string(key))
	}); err != nil {
		return badRequest("malformed body: %v", err)
	}
	return nil
}

type openViewRequest struct {
	ProductID string
	CartID    string
}

func decodeOpenView(w http.ResponseWriter, r *http.Request) (openViewRequest, error) {
	var req openViewRequest
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			req.ProductID, err = d.Str()
		case "cartId":
			if d.Next() == jx.Null {
				return d.Null()
			}
			req.CartID, err = d.Str()
		default:
			return d.Skip()
		}
		return err
	})
	if err != nil {
		return req, err
	}
	if req.ProductID == "" {
		return req, badRequest("productId is required")
	}
	return req, nil
}

// decodeInt reads {"<name>": <int>}.
func decodeInt(w http.ResponseWriter, r *http.Request, name string) (int, error) {
	var (
		v   int
		set bool
	)
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		if key != name {
			return d.Skip()
		}
		var err error
		v, err = d.Int()
		set = err == nil
		return err
	})
	if err != nil {
		return 0, err
	}
	if !set {
		return 0, badRequest("%s is required", name)
	}
	return v, nil
}

type variantRequest struct {
	Size  *string
	Color *string
}

func decodeVariant(w http.ResponseWriter, r *http.Request) (variantRequest, error) {
	var req variantRequest
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		var target **string
		switch key {
		case "size":
			target = &req.Size
		case "color":
			target = &req.Color
		default:
			return d.Skip()
		}
		s, err := d.Str()
		if err != nil {
			return err
		}
		*target = &s
		return nil
	})
	if err != nil {
		return req, err
	}
	if req.Size == nil && req.Color == nil {
		return req, badRequest("size or color is required")
	}
	return req, nil
}
