// Package schema loads attribute schemas from YAML and turns them into model
// defaults and a validation gate.
//
// A schema file looks like:
//
//	name: todo
//	urlRoot: /todos
//	strict: true
//	attributes:
//	  - name: title
//	    type: string
//	    required: true
//	    default: ""
//	  - name: priority
//	    type: int
//	    min: 1
//	    max: 5
//	    default: 3
//	  - name: state
//	    type: string
//	    enum: [open, done]
//
// Use Options to configure a model from a schema:
//
//	s, err := schema.Load("todo.yaml")
//	m := model.New(attrs, s.Options()...)
package schema
