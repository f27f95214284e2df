package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldmark/fieldmark/internal/core/domain"
	"github.com/fieldmark/fieldmark/internal/pkg/geodesy"
)

// RegistryStats holds row counts from the hub tables.
type RegistryStats struct {
	Farms      int    `json:"farms"`
	Fields     int    `json:"fields"`
	Artifacts  int    `json:"artifacts"`
	LastIntake string `json:"last_intake,omitempty"`
}

// RegistryStatsHandler returns row counts from the registry tables.
func RegistryStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		var stats RegistryStats
		row := deps.DB.Pool.QueryRow(c.Context(), `
			SELECT
				(SELECT count(*) FROM farms),
				(SELECT count(*) FROM fields),
				(SELECT count(*) FROM capture_artifacts),
				COALESCE((SELECT max(received_at)::text FROM capture_artifacts), '')
		`)
		if err := row.Scan(&stats.Farms, &stats.Fields, &stats.Artifacts, &stats.LastIntake); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stats)
	}
}

// CreateFarmHandler registers a farm.
func CreateFarmHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var farm domain.Farm
		if err := c.BodyParser(&farm); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if err := deps.Fields.CreateFarm(c.Context(), &farm); err != nil {
			if errors.Is(err, domain.ErrLatitudeRange) || errors.Is(err, domain.ErrLongitudeRange) {
				return errBadRequest(c, err.Error())
			}
			return errBadRequest(c, err.Error())
		}
		return c.Status(201).JSON(farm)
	}
}

// ListFarmsHandler returns all farms with offset/limit pagination.
func ListFarmsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		farms, err := deps.Fields.ListFarms(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 100
		}

		total := len(farms)
		if offset >= total {
			farms = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			farms = farms[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: farms, Pagination: pg})
	}
}

// GetFarmHandler returns a single farm.
func GetFarmHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		farm, err := deps.Fields.GetFarm(c.Context(), c.Params("id"))
		if err != nil {
			return errNotFound(c, err.Error())
		}
		return c.JSON(farm)
	}
}

// FarmFieldsHandler lists the fields of one farm.
func FarmFieldsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fields, err := deps.Fields.ListFields(c.Context(), c.Params("id"))
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(fiber.Map{"data": fields})
	}
}

// CreateFieldHandler registers a field.
func CreateFieldHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var field domain.Field
		if err := c.BodyParser(&field); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if err := deps.Fields.CreateField(c.Context(), &field); err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.Status(201).JSON(field)
	}
}

// NearbyFieldsHandler finds fields around a point.
// Query params: lat, lon (required), radius (default 500m), limit (default 20).
func NearbyFieldsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 999)
		lon := c.QueryFloat("lon", 999)
		if lat == 999 || lon == 999 {
			return errBadRequest(c, "lat and lon query parameters are required")
		}

		radius := c.QueryFloat("radius", 500)
		limit := c.QueryInt("limit", 20)

		fields, err := deps.Fields.FindNearby(c.Context(), lat, lon, radius, limit)
		if err != nil {
			if errors.Is(err, domain.ErrLatitudeRange) || errors.Is(err, domain.ErrLongitudeRange) {
				return errBadRequest(c, err.Error())
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(fiber.Map{"data": fields})
	}
}

// GetFieldHandler returns a single field.
func GetFieldHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		field, err := deps.Fields.GetField(c.Context(), c.Params("id"))
		if err != nil {
			return errNotFound(c, err.Error())
		}
		return c.JSON(field)
	}
}

// UpdateBoundaryHandler replaces a field's boundary with a recorded ring.
func UpdateBoundaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Ring []domain.GeoPoint `json:"ring"`
		}
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if err := deps.Fields.ApplyBoundary(c.Context(), c.Params("id"), body.Ring); err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.JSON(fiber.Map{"status": "updated"})
	}
}

// ConvertResponse carries one coordinate in every supported notation.
type ConvertResponse struct {
	DecimalDegrees struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"decimal_degrees"`
	DMS struct {
		Latitude  domain.DMS `json:"latitude"`
		Longitude domain.DMS `json:"longitude"`
	} `json:"dms"`
	UTM  domain.UTMCoordinate `json:"utm"`
	MGRS string               `json:"mgrs,omitempty"`
}

// ConvertHandler renders a lat/lon pair in DMS, UTM, and MGRS notations.
// MGRS is omitted outside its latitude coverage instead of failing the
// whole conversion.
func ConvertHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 999)
		lon := c.QueryFloat("lon", 999)
		if lat == 999 || lon == 999 {
			return errBadRequest(c, "lat and lon query parameters are required")
		}
		if err := domain.ValidateLatLon(lat, lon); err != nil {
			return errBadRequest(c, err.Error())
		}

		var resp ConvertResponse
		resp.DecimalDegrees.Latitude = lat
		resp.DecimalDegrees.Longitude = lon

		latDMS, err := geodesy.ToDMS(lat, geodesy.AxisLatitude)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		lonDMS, err := geodesy.ToDMS(lon, geodesy.AxisLongitude)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		resp.DMS.Latitude = latDMS
		resp.DMS.Longitude = lonDMS

		utm, err := geodesy.ToUTM(lat, lon)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		resp.UTM = utm

		if mgrs, err := geodesy.ToMGRS(lat, lon); err == nil {
			resp.MGRS = mgrs
		}

		return c.JSON(resp)
	}
}

// ParseCoordinateHandler converts DMS, UTM, or MGRS input back to decimal
// degrees. Exactly one of dms, utm, or mgrs must be present in the body.
func ParseCoordinateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			DMS *struct {
				Latitude  domain.DMS `json:"latitude"`
				Longitude domain.DMS `json:"longitude"`
			} `json:"dms"`
			UTM  *domain.UTMCoordinate `json:"utm"`
			MGRS string                `json:"mgrs"`
		}
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}

		var lat, lon float64
		var err error
		switch {
		case body.DMS != nil:
			lat, err = geodesy.FromDMS(body.DMS.Latitude)
			if err == nil {
				lon, err = geodesy.FromDMS(body.DMS.Longitude)
			}
		case body.UTM != nil:
			lat, lon, err = geodesy.FromUTM(*body.UTM)
		case body.MGRS != "":
			lat, lon, err = geodesy.FromMGRS(body.MGRS)
		default:
			return errBadRequest(c, "one of dms, utm, or mgrs is required")
		}
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		return c.JSON(fiber.Map{
			"latitude":  lat,
			"longitude": lon,
		})
	}
}

// ClassifyAccuracyHandler grades a single fix's accuracy.
func ClassifyAccuracyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var fix domain.Coordinate
		if err := c.BodyParser(&fix); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if err := fix.Validate(); err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.JSON(deps.Accuracy.Classify(fix))
	}
}

// ImproveAccuracyHandler averages multiple fixes into a better position.
type improveRequest struct {
	Fixes []domain.Coordinate `json:"fixes"`
}

type improveResponse struct {
	Coordinate *domain.Coordinate        `json:"coordinate"`
	Assessment domain.AccuracyAssessment `json:"assessment"`
	FixesUsed  int                       `json:"fixes_used"`
}

func ImproveAccuracyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req improveRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		for _, fix := range req.Fixes {
			if err := fix.Validate(); err != nil {
				return errBadRequest(c, err.Error())
			}
		}

		improved, err := deps.Accuracy.Improve(req.Fixes)
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientFixes) || errors.Is(err, domain.ErrAllFixesRejected) {
				return errBadRequest(c, err.Error())
			}
			return errInternal(c, err.Error())
		}

		return c.JSON(improveResponse{
			Coordinate: improved,
			Assessment: deps.Accuracy.Classify(*improved),
			FixesUsed:  len(req.Fixes),
		})
	}
}

// SyncIntakeHandler accepts one artifact from a field agent. The URL kind
// must match the artifact's own kind; intake is idempotent by artifact id.
func SyncIntakeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind := domain.ArtifactKind(c.Params("kind"))
		if !domain.ValidKind(kind) {
			return errBadRequest(c, "unknown artifact kind: "+c.Params("kind"))
		}

		var artifact domain.CaptureArtifact
		if err := c.BodyParser(&artifact); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if artifact.Kind == "" {
			artifact.Kind = kind
		}
		if artifact.Kind != kind {
			return errConflict(c, "artifact kind does not match URL")
		}
		if artifact.CapturedAt.IsZero() {
			artifact.CapturedAt = time.Now()
		}

		if err := deps.Ingest.Ingest(c.Context(), &artifact); err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.Status(202).JSON(fiber.Map{"status": "accepted", "id": artifact.ID})
	}
}

// ListArtifactsHandler lists ingested artifacts, optionally by kind.
func ListArtifactsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind := domain.ArtifactKind(c.Query("kind"))
		limit := c.QueryInt("limit", 50)

		artifacts, err := deps.Ingest.List(c.Context(), kind, limit)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.JSON(fiber.Map{"data": artifacts})
	}
}

// GetArtifactHandler returns one ingested artifact.
func GetArtifactHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		artifact, err := deps.Ingest.Get(c.Context(), c.Params("id"))
		if err != nil {
			if errors.Is(err, domain.ErrArtifactNotFound) {
				return errNotFound(c, "artifact not found")
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(artifact)
	}
}
