// Package controlplane implements the C7 HTTP control plane: the request/
// response surface of spec.md §6 that mutates C3 (Stream Registry) and C6
// (Job Supervisor) state.
package controlplane

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/idlab-discover/Multi-path-XR/internal/model"
)

// envelope is the JSON response shape of spec.md §6: {status, ..., error_kind}.
type envelope struct {
	Status    string      `json:"status"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorKind model.ErrorKind `json:"error_kind,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope{Status: "success", Data: data})
}

// fail maps err's ErrorKind onto an HTTP status and writes the error envelope.
func fail(c *gin.Context, err error) {
	kind := model.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case model.ErrInvalidArgument:
		status = http.StatusBadRequest
	case model.ErrNotFound:
		status = http.StatusNotFound
	case model.ErrInvalidTransition, model.ErrBackpressure:
		status = http.StatusConflict
	case model.ErrDeadlineExpired:
		status = http.StatusRequestTimeout
	}
	c.JSON(status, envelope{Status: "error", Error: err.Error(), ErrorKind: kind})
}
