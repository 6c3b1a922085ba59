package transport

import (
	"encoding/json"
	"fmt"

	sdkerrors "github.com/argil-ai/argil-go/sdk/errors"
)

// Decode unmarshals a response body into T.
func Decode[T any](body []byte) (*T, error) {
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, sdkerrors.Wrap(
			sdkerrors.KindValidation,
			err,
			fmt.Sprintf("unexpected response body: %s", preview(body)),
		)
	}
	return &out, nil
}

func preview(body []byte) string {
	const limit = 120
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
