package definition

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-forms/internal/textcase"
	"github.com/goliatone/go-forms/pkg/controls"
)

// ErrOperationNotFound is returned when an OpenAPI document lacks the
// requested operation.
var ErrOperationNotFound = errors.New("definition: operation not found")

// longTextLength is the maxLength above which strings become textareas.
const longTextLength = 255

// OpenAPIOptions tune FromOpenAPI.
type OpenAPIOptions struct {
	// Alias of the produced form. Defaults to the operation id.
	Alias string
	// ResolveReferences allows external $ref resolution and validates the
	// document.
	ResolveReferences bool
}

type openAPIOperation struct {
	id        string
	method    string
	path      string
	operation *openapi3.Operation
}

// Operations lists the operation ids of an OpenAPI document, sorted.
// Operations without an id are named "<method>:<path>".
func Operations(ctx context.Context, data []byte) ([]string, error) {
	ops, err := loadOperations(ctx, data, false)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ops))
	for id := range ops {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// FromOpenAPI derives a form definition from one operation of an OpenAPI
// document. GET operations map their query parameters onto a GET form,
// anything else maps its request body schema onto a POST form.
func FromOpenAPI(ctx context.Context, data []byte, operationID string, opts OpenAPIOptions) (Definition, error) {
	ops, err := loadOperations(ctx, data, opts.ResolveReferences)
	if err != nil {
		return Definition{}, err
	}
	op, ok := ops[operationID]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrOperationNotFound, operationID)
	}

	alias := opts.Alias
	if alias == "" {
		alias = operationID
	}

	params := map[string]any{
		"action": op.path,
		"method": "post",
	}
	if title := strings.TrimSpace(op.operation.Summary); title != "" {
		params["title"] = title
	}

	var fields []any
	if op.method == http.MethodGet {
		params["method"] = "get"
		fields = queryFields(op.operation.Parameters)
	} else {
		schema, mediaType := requestSchema(op.operation.RequestBody)
		if mediaType == "multipart/form-data" {
			params["attrs"] = map[string]any{"enctype": mediaType}
		}
		fields = schemaFields(schema)
	}
	if len(fields) == 0 {
		return Definition{}, fmt.Errorf("definition: operation %q has no form inputs", operationID)
	}
	params["fields"] = fields

	return Definition{Alias: alias, Params: params, Source: "openapi:" + operationID}, nil
}

func loadOperations(ctx context.Context, data []byte, resolve bool) (map[string]openAPIOperation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("definition: openapi document is empty")
	}

	loader := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: resolve,
	}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("definition: load openapi document: %w", err)
	}
	if resolve {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("definition: validate openapi document: %w", err)
		}
	}
	if spec.Paths == nil || spec.Paths.Len() == 0 {
		return nil, errors.New("definition: openapi document does not contain any paths")
	}

	out := make(map[string]openAPIOperation)
	for path, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		for method, operation := range item.Operations() {
			if operation == nil {
				continue
			}
			id := operation.OperationID
			if id == "" {
				id = strings.ToLower(method) + ":" + path
			}
			out[id] = openAPIOperation{id: id, method: method, path: path, operation: operation}
		}
	}
	return out, nil
}

func requestSchema(body *openapi3.RequestBodyRef) (*openapi3.Schema, string) {
	if body == nil || body.Value == nil {
		return nil, ""
	}
	content := body.Value.Content
	for _, mediaType := range []string{"application/x-www-form-urlencoded", "multipart/form-data", "application/json"} {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil {
			return mt.Schema.Value, mediaType
		}
	}
	mediaTypes := make([]string, 0, len(content))
	for mediaType := range content {
		mediaTypes = append(mediaTypes, mediaType)
	}
	sort.Strings(mediaTypes)
	for _, mediaType := range mediaTypes {
		if mt := content[mediaType]; mt != nil && mt.Schema != nil {
			return mt.Schema.Value, mediaType
		}
	}
	return nil, ""
}

func schemaFields(schema *openapi3.Schema) []any {
	if schema == nil || len(schema.Properties) == 0 {
		return nil
	}
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	fields := make([]any, 0, len(names))
	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil || ref.Value.ReadOnly {
			continue
		}
		fields = append(fields, fieldFromSchema(name, ref.Value, required[name]))
	}
	return fields
}

func queryFields(parameters openapi3.Parameters) []any {
	var fields []any
	for _, ref := range parameters {
		if ref == nil || ref.Value == nil || ref.Value.In != openapi3.ParameterInQuery {
			continue
		}
		param := ref.Value
		schema := &openapi3.Schema{}
		if param.Schema != nil && param.Schema.Value != nil {
			schema = param.Schema.Value
		}
		field := fieldFromSchema(param.Name, schema, param.Required)
		if schema.Title == "" && param.Description != "" {
			field["title"] = param.Description
		}
		fields = append(fields, field)
	}
	return fields
}

func fieldFromSchema(name string, schema *openapi3.Schema, required bool) map[string]any {
	field := map[string]any{
		"slug":  name,
		"type":  controlType(schema),
		"title": textcase.Humanize(name),
	}
	if schema.Title != "" {
		field["title"] = schema.Title
	}
	if required {
		field["required"] = true
	}
	if schema.Default != nil {
		field["value"] = schema.Default
	}

	switch field["type"] {
	case controls.TypeSelect:
		field["choices"] = append([]any(nil), schema.Enum...)
	case controls.TypeCheckboxCollection:
		field["choices"] = append([]any(nil), schema.Items.Value.Enum...)
	}
	if example, ok := schema.Example.(string); ok && example != "" {
		field["attrs"] = map[string]any{"placeholder": example}
	}

	if validations := schemaValidations(schema); len(validations) > 0 {
		field["validations"] = validations
	}
	return field
}

func controlType(schema *openapi3.Schema) string {
	switch {
	case len(schema.Enum) > 0:
		return controls.TypeSelect
	case schemaIs(schema, openapi3.TypeBoolean):
		return controls.TypeCheckbox
	case schemaIs(schema, openapi3.TypeInteger), schemaIs(schema, openapi3.TypeNumber):
		return controls.TypeNumber
	case schemaIs(schema, openapi3.TypeArray):
		if schema.Items != nil && schema.Items.Value != nil && len(schema.Items.Value.Enum) > 0 {
			return controls.TypeCheckboxCollection
		}
		return controls.TypeRepeater
	}

	switch schema.Format {
	case "email":
		return controls.TypeEmail
	case "uri", "url":
		return controls.TypeURL
	case "date":
		return controls.TypeDate
	case "date-time":
		return controls.TypeDatetimeJS
	case "password":
		return controls.TypePassword
	case "binary":
		return controls.TypeFile
	}
	if schema.MaxLength != nil && *schema.MaxLength > longTextLength {
		return controls.TypeTextarea
	}
	return controls.TypeText
}

func schemaIs(schema *openapi3.Schema, kind string) bool {
	return schema.Type != nil && schema.Type.Is(kind)
}

func schemaValidations(schema *openapi3.Schema) []any {
	var out []any
	add := func(call string, args ...any) {
		entry := map[string]any{"call": call}
		if len(args) > 0 {
			entry["args"] = args
		}
		out = append(out, entry)
	}

	switch schema.Format {
	case "email":
		add("email")
	case "uri", "url":
		add("url")
	case "uuid":
		add("uuid")
	}
	if schema.Pattern != "" {
		add("regex", schema.Pattern)
	}
	if schema.MinLength > 0 || schema.MaxLength != nil {
		var upper any
		if schema.MaxLength != nil {
			upper = int(*schema.MaxLength)
		}
		add("length", int(schema.MinLength), upper)
	}
	switch {
	case schema.Min != nil && schema.Max != nil:
		add("between", *schema.Min, *schema.Max)
	case schema.Min != nil:
		add("min", *schema.Min)
	case schema.Max != nil:
		add("max", *schema.Max)
	}
	if len(schema.Enum) > 0 {
		add("in", append([]any(nil), schema.Enum...))
	}
	return out
}
