// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package proximity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jcodagnone/cercania/utils/throttle"
)

// Errores comunes del pipeline.
var (
	ErrNoCategories          = errors.New("no categories configured")
	ErrNoResult              = errors.New("no completed run")
	ErrRunInProgress         = errors.New("a run is already in progress")
	ErrUnknownPlace          = errors.New("unknown place")
	ErrCandidateLimit        = errors.New("candidate limit reached for category")
	ErrPlaceHasDistanceError = errors.New("place has no distance and can't be a candidate")
	ErrElementCountMismatch  = errors.New("distance matrix returned a different number of elements than destinations")
	ErrAPIKeyMissing         = errors.New("google maps API key not configured")
)

// ProviderError representa errores específicos de los proveedores de mapas.
type ProviderError struct {
	Type    ErrorType
	Status  string
	Message string
	Err     error
}

// ErrorType define tipos de errores de proveedores.
type ErrorType int

const (
	// ErrorTypeUnknown error desconocido.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeThrottling límite de tasa alcanzado, se puede reintentar.
	ErrorTypeThrottling
	// ErrorTypeRequest error del request, fatal para la corrida.
	ErrorTypeRequest
	// ErrorTypeElement error de un destino dentro de una matriz de distancias.
	ErrorTypeElement
	// ErrorTypeEnrichment error al obtener detalles luego de agotar reintentos.
	ErrorTypeEnrichment
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeThrottling:
		return "throttling"
	case ErrorTypeRequest:
		return "request"
	case ErrorTypeElement:
		return "element"
	case ErrorTypeEnrichment:
		return "enrichment"
	default:
		return "unknown"
	}
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if e.Status != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Status)
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsThrottlingError verifica si el error es por límite de tasa.
func IsThrottlingError(err error) bool {
	if err == nil {
		return false
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Type == ErrorTypeThrottling
	}

	// Detectar por mensaje de error común
	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "over_query_limit") ||
		strings.Contains(errStr, "too many requests")
}

// IsRequestError verifica si el error es un error fatal del proveedor.
func IsRequestError(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Type == ErrorTypeRequest
	}

	return false
}

// ClassifyStatus clasifica el status de una respuesta de Google Maps.
// Devuelve nil para los status exitosos.
func ClassifyStatus(status, message string) *ProviderError {
	switch status {
	case StatusOK, StatusZeroResults:
		return nil
	case "OVER_QUERY_LIMIT":
		return &ProviderError{
			Type:    ErrorTypeThrottling,
			Status:  status,
			Message: withDetail("límite de tasa alcanzado", message),
		}
	case "REQUEST_DENIED":
		return &ProviderError{
			Type:    ErrorTypeRequest,
			Status:  status,
			Message: withDetail("request denegado", message),
		}
	case "INVALID_REQUEST", "MAX_ELEMENTS_EXCEEDED", "MAX_DIMENSIONS_EXCEEDED", "MAX_ROUTE_LENGTH_EXCEEDED":
		return &ProviderError{
			Type:    ErrorTypeRequest,
			Status:  status,
			Message: withDetail("request inválido", message),
		}
	case "NOT_FOUND":
		return &ProviderError{
			Type:    ErrorTypeRequest,
			Status:  status,
			Message: withDetail("lugar no encontrado", message),
		}
	default:
		return &ProviderError{
			Type:    ErrorTypeRequest,
			Status:  status,
			Message: withDetail("error del proveedor", message),
		}
	}
}

func withDetail(msg, detail string) string {
	if detail == "" {
		return msg
	}

	return msg + ": " + detail
}

// ClassifyHTTPError clasifica un error HTTP en un tipo de error de proveedor.
func ClassifyHTTPError(statusCode int) *ProviderError {
	switch statusCode {
	case http.StatusTooManyRequests: // 429
		return &ProviderError{
			Type:    ErrorTypeThrottling,
			Message: "límite de tasa alcanzado",
		}
	case http.StatusForbidden: // 403
		return &ProviderError{
			Type:    ErrorTypeRequest,
			Message: "cuota excedida o acceso denegado",
		}
	case http.StatusBadRequest: // 400
		return &ProviderError{
			Type:    ErrorTypeRequest,
			Message: "request inválido",
		}
	default:
		return &ProviderError{
			Type:    ErrorTypeRequest,
			Message: fmt.Sprintf("error HTTP %d", statusCode),
		}
	}
}

// asRequestError reclasifica un throttling que agotó los reintentos como
// error fatal del request. Otros errores se devuelven sin cambios.
func asRequestError(op string, err error) error {
	if err == nil {
		return nil
	}

	if throttle.IsExhausted(err) {
		return &ProviderError{
			Type:    ErrorTypeRequest,
			Message: op + ": reintentos agotados por límite de tasa",
			Err:     err,
		}
	}

	return err
}

// Stage identifies the pipeline step where a run failed.
type Stage string

// Pipeline stages.
const (
	StageSearch   Stage = "search"
	StageDistance Stage = "distance"
	StageEnrich   Stage = "enrich"
)

// RunError is the single aggregate failure reported for an aborted run.
type RunError struct {
	Stage    Stage
	Category string
	Err      error
}

func (e *RunError) Error() string {
	if e.Category != "" {
		return fmt.Sprintf("proximity run failed during %s of category %q: %v", e.Stage, e.Category, e.Err)
	}

	return fmt.Sprintf("proximity run failed during %s: %v", e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
