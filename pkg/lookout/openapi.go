// lookout
// (C) 2025, Deutsche Telekom IT GmbH
//
// Deutsche Telekom IT GmbH and all other contributors /
// copyright owners license this file to you under the Apache
// License, Version 2.0 (the "License"); you may not use this
// file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package lookout

import (
	"fmt"
	"net/http"
	"net/netip"
	"reflect"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
	"github.com/google/uuid"

	"github.com/caas-team/lookout/pkg/db"
)

const uuidPattern = `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`

func uuidSchema() *openapi3.Schema {
	s := openapi3.NewStringSchema().WithPattern(uuidPattern)
	s.Description = "Target id (UUID)"
	return s
}

// customizeSchema describes types that marshal to text as strings
func customizeSchema(_ string, t reflect.Type, _ reflect.StructTag, schema *openapi3.Schema) error {
	switch t {
	case reflect.TypeOf(uuid.UUID{}):
		*schema = *uuidSchema()
	case reflect.TypeOf(netip.Addr{}):
		*schema = *openapi3.NewStringSchema()
		schema.Description = "IPv4 or IPv6 address"
	}
	return nil
}

func schemaFor(v any) (*openapi3.SchemaRef, error) {
	ref, err := openapi3gen.NewSchemaRefForValue(v, openapi3.Schemas{}, openapi3gen.SchemaCustomizer(customizeSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema for %T: %w", v, err)
	}
	return ref, nil
}

func response(desc string, ref *openapi3.SchemaRef) *openapi3.ResponseRef {
	r := &openapi3.Response{Description: &desc}
	if ref != nil {
		r.Content = openapi3.NewContentWithJSONSchemaRef(ref)
	}
	return &openapi3.ResponseRef{Value: r}
}

// OpenAPI returns the OpenAPI document of the management api
func OpenAPI() (openapi3.T, error) {
	target, err := schemaFor(db.Target{})
	if err != nil {
		return openapi3.T{}, err
	}
	result, err := schemaFor(db.ProbeResult{})
	if err != nil {
		return openapi3.T{}, err
	}
	event, err := schemaFor(db.Event{})
	if err != nil {
		return openapi3.T{}, err
	}
	status, err := schemaFor(Status{})
	if err != nil {
		return openapi3.T{}, err
	}
	create, err := schemaFor(CreateTargetRequest{})
	if err != nil {
		return openapi3.T{}, err
	}
	event.Value.Properties["kind"] = openapi3.NewStringSchema().WithEnum(toAny(eventKinds)...).NewRef()
	event.Value.Properties["missed"] = openapi3.NewInt64Schema().NewRef()
	result.Value.Properties["status"] = openapi3.NewStringSchema().
		WithEnum(string(db.StatusOk), string(db.StatusTimeout), string(db.StatusFailure)).NewRef()

	idParam := &openapi3.ParameterRef{
		Value: openapi3.NewPathParameter(urlParamTargetID).WithSchema(uuidSchema()),
	}
	badRequest := response(http.StatusText(http.StatusBadRequest), nil)
	notFound := response(http.StatusText(http.StatusNotFound), nil)

	doc := openapi3.T{
		OpenAPI: "3.0.0",
		Info: &openapi3.Info{
			Title:       "Lookout Management API",
			Description: "Manages the monitored targets and serves their probe history",
			Version:     "v1",
			Contact: &openapi3.Contact{
				URL:   "https://caas.telekom.de",
				Email: "caas-request@telekom.de",
				Name:  "CaaS Team",
			},
		},
		Paths: openapi3.Paths{
			"/v1/targets": &openapi3.PathItem{
				Get: &openapi3.Operation{
					Description: "Lists all targets",
					Tags:        []string{"Targets"},
					Responses: openapi3.Responses{
						fmt.Sprint(http.StatusOK): response("All targets", openapi3.NewArraySchema().WithItems(target.Value).NewRef()),
					},
				},
				Post: &openapi3.Operation{
					Description: "Adds a target",
					Tags:        []string{"Targets"},
					RequestBody: &openapi3.RequestBodyRef{
						Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchemaRef(create),
					},
					Responses: openapi3.Responses{
						fmt.Sprint(http.StatusOK):         response("The created target", target),
						fmt.Sprint(http.StatusBadRequest): badRequest,
					},
				},
			},
			"/v1/targets/{" + urlParamTargetID + "}": &openapi3.PathItem{
				Parameters: openapi3.Parameters{idParam},
				Get: &openapi3.Operation{
					Description: "Returns a target",
					Tags:        []string{"Targets"},
					Responses: openapi3.Responses{
						fmt.Sprint(http.StatusOK):         response("The target", target),
						fmt.Sprint(http.StatusBadRequest): badRequest,
						fmt.Sprint(http.StatusNotFound):   notFound,
					},
				},
				Delete: &openapi3.Operation{
					Description: "Deletes a target. Deleting an unknown target is accepted as well.",
					Tags:        []string{"Targets"},
					Responses: openapi3.Responses{
						fmt.Sprint(http.StatusAccepted):   response(http.StatusText(http.StatusAccepted), nil),
						fmt.Sprint(http.StatusBadRequest): badRequest,
					},
				},
			},
			"/v1/targets/{" + urlParamTargetID + "}/results": &openapi3.PathItem{
				Parameters: openapi3.Parameters{idParam},
				Get: &openapi3.Operation{
					Description: "Returns the probe history of a target, oldest result first",
					Tags:        []string{"Targets"},
					Responses: openapi3.Responses{
						fmt.Sprint(http.StatusOK):         response("The probe history", openapi3.NewArraySchema().WithItems(result.Value).NewRef()),
						fmt.Sprint(http.StatusBadRequest): badRequest,
						fmt.Sprint(http.StatusNotFound):   notFound,
					},
				},
			},
			"/v1/events": &openapi3.PathItem{
				Get: &openapi3.Operation{
					Description: "Websocket stream of target changes. Every message is an event or a lag notice.",
					Tags:        []string{"Events"},
					Responses: openapi3.Responses{
						fmt.Sprint(http.StatusSwitchingProtocols): response("A store event", event),
					},
				},
			},
			"/v1/status": &openapi3.PathItem{
				Get: &openapi3.Operation{
					Description: "Returns the number of targets and the targets with a running probe worker",
					Tags:        []string{"Status"},
					Responses: openapi3.Responses{
						fmt.Sprint(http.StatusOK): response("The monitor status", status),
					},
				},
			},
		},
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				"Target":      target,
				"ProbeResult": result,
				"Event":       event,
				"Status":      status,
			},
		},
	}
	return doc, nil
}

func toAny(s []string) []any {
	out := make([]any, len(s))
	for i := range s {
		out[i] = s[i]
	}
	return out
}
