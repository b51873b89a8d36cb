/*
Package processor loads record type schemas from OpenAPI documents.

Schemas opt in with the x-cipherstash vendor extension, which names the key
fields. Properties carry their own x-cipherstash extension describing role and
query modes; a property without one is an encrypted, unindexed field. Field
kinds follow the OpenAPI type and format and may be overridden with kind.

	components:
	  schemas:
	    User:
	      type: object
	      x-cipherstash:
	        partitionKey: email
	      properties:
	        email:
	          type: string
	          x-cipherstash:
	            query: [exact]
	            compound:
	              email#name: exact
	        name:
	          type: string
	          x-cipherstash:
	            query: [prefix]
	            cap: 4
	            compound:
	              email#name: prefix
	        age:
	          type: integer
	          x-cipherstash:
	            role: plaintext
	        createdAt:
	          type: string
	          format: date-time

The result is a list of validated registry.RecordType values, ready to be
registered. Schema mistakes surface as ConfigurationError at load time.
*/
package processor
