package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/fieldmark/fieldmark/internal/core/domain"
	"github.com/fieldmark/fieldmark/internal/pkg/geodesy"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	farmType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Farm",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"name":       &graphql.Field{Type: graphql.String},
			"owner_name": &graphql.Field{Type: graphql.String},
			"location":   &graphql.Field{Type: geoPointType},
		},
	})

	fieldType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Field",
		Fields: graphql.Fields{
			"id":               &graphql.Field{Type: graphql.String},
			"farm_id":          &graphql.Field{Type: graphql.String},
			"name":             &graphql.Field{Type: graphql.String},
			"location":         &graphql.Field{Type: geoPointType},
			"boundary":         &graphql.Field{Type: graphql.NewList(geoPointType)},
			"area_acres":       &graphql.Field{Type: graphql.Float},
			"perimeter_meters": &graphql.Field{Type: graphql.Float},
			"distance":         &graphql.Field{Type: graphql.Float},
		},
	})

	utmType := graphql.NewObject(graphql.ObjectConfig{
		Name: "UTMCoordinate",
		Fields: graphql.Fields{
			"zone":       &graphql.Field{Type: graphql.Int},
			"hemisphere": &graphql.Field{Type: graphql.String},
			"easting":    &graphql.Field{Type: graphql.Float},
			"northing":   &graphql.Field{Type: graphql.Float},
		},
	})

	artifactType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Artifact",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"kind":        &graphql.Field{Type: graphql.String},
			"captured_at": &graphql.Field{Type: graphql.String},
			"sync_state":  &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"farms": &graphql.Field{
				Type:        graphql.NewList(farmType),
				Description: "List all registered farms",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Fields.ListFarms(p.Context)
				},
			},
			"farm": &graphql.Field{
				Type:        farmType,
				Description: "Get a farm by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Fields.GetFarm(p.Context, p.Args["id"].(string))
				},
			},
			"field": &graphql.Field{
				Type:        fieldType,
				Description: "Get a field by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Fields.GetField(p.Context, p.Args["id"].(string))
				},
			},
			"fieldsByFarm": &graphql.Field{
				Type:        graphql.NewList(fieldType),
				Description: "List fields under a farm",
				Args: graphql.FieldConfigArgument{
					"farm_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Fields.ListFields(p.Context, p.Args["farm_id"].(string))
				},
			},
			"fieldsNearby": &graphql.Field{
				Type:        graphql.NewList(fieldType),
				Description: "Find fields near a location",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 500.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					radius := p.Args["radius"].(float64)
					limit := p.Args["limit"].(int)
					return deps.Fields.FindNearby(p.Context, lat, lon, radius, limit)
				},
			},
			"artifacts": &graphql.Field{
				Type:        graphql.NewList(artifactType),
				Description: "List ingested capture artifacts",
				Args: graphql.FieldConfigArgument{
					"kind":  &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					kind := domain.ArtifactKind(p.Args["kind"].(string))
					limit := p.Args["limit"].(int)
					return deps.Ingest.List(p.Context, kind, limit)
				},
			},
			"convertToUTM": &graphql.Field{
				Type:        utmType,
				Description: "Convert decimal degrees to UTM",
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return geodesy.ToUTM(p.Args["lat"].(float64), p.Args["lon"].(float64))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
