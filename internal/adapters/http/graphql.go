package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	rewardType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Reward",
		Fields: graphql.Fields{
			"brand":       &graphql.Field{Type: graphql.String},
			"discount":    &graphql.Field{Type: graphql.String},
			"code":        &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
		},
	})

	territoryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Territory",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"user_id":      &graphql.Field{Type: graphql.String},
			"name":         &graphql.Field{Type: graphql.String},
			"color":        &graphql.Field{Type: graphql.String},
			"area":         &graphql.Field{Type: graphql.Float},
			"distance":     &graphql.Field{Type: graphql.Float},
			"duration":     &graphql.Field{Type: graphql.Int},
			"is_sponsored": &graphql.Field{Type: graphql.Boolean},
			"reward":       &graphql.Field{Type: rewardType},
		},
	})

	preferencesType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Preferences",
		Fields: graphql.Fields{
			"unit":            &graphql.Field{Type: graphql.String},
			"activity_type":   &graphql.Field{Type: graphql.String},
			"territory_color": &graphql.Field{Type: graphql.String},
		},
	})

	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"email":        &graphql.Field{Type: graphql.String},
			"display_name": &graphql.Field{Type: graphql.String},
			"preferences":  &graphql.Field{Type: preferencesType},
		},
	})

	leaderboardEntryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LeaderboardEntry",
		Fields: graphql.Fields{
			"rank":           &graphql.Field{Type: graphql.Int},
			"user_id":        &graphql.Field{Type: graphql.String},
			"display_name":   &graphql.Field{Type: graphql.String},
			"color":          &graphql.Field{Type: graphql.String},
			"territories":    &graphql.Field{Type: graphql.Int},
			"total_area":     &graphql.Field{Type: graphql.Float},
			"total_distance": &graphql.Field{Type: graphql.Float},
			"points":         &graphql.Field{Type: graphql.Int},
		},
	})

	runType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Run",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"user_id":  &graphql.Field{Type: graphql.String},
			"distance": &graphql.Field{Type: graphql.Float},
			"duration": &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"territories": &graphql.Field{
				Type:        graphql.NewList(territoryType),
				Description: "The shared territory map, including sponsored brand zones",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Territories.ListAll(p.Context)
				},
			},
			"territory": &graphql.Field{
				Type:        territoryType,
				Description: "Get a territory by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Territories.Get(p.Context, id)
				},
			},
			"territoriesNearby": &graphql.Field{
				Type:        graphql.NewList(territoryType),
				Description: "Find territories near a location",
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
					return deps.Territories.FindNearby(p.Context, lat, lon, radius, limit)
				},
			},
			"leaderboard": &graphql.Field{
				Type:        graphql.NewList(leaderboardEntryType),
				Description: "Top players ranked by captured area",
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					limit := p.Args["limit"].(int)
					return deps.Leaderboard.Top(p.Context, limit)
				},
			},
			"user": &graphql.Field{
				Type:        userType,
				Description: "Get a player by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Users.GetByID(p.Context, id)
				},
			},
			"runs": &graphql.Field{
				Type:        graphql.NewList(runType),
				Description: "A player's saved runs",
				Args: graphql.FieldConfigArgument{
					"user_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					userID := p.Args["user_id"].(string)
					return deps.Runs.ListByUser(p.Context, userID)
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
