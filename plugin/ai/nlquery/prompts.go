package nlquery

// resolverPrompt asks the model to name the accounting entities a question
// touches. The answer must be strict JSON so it can be parsed directly.
const resolverPrompt = `You are a tool that maps a natural language question about business data to the Odoo accounting models it needs.
Only models from the Invoicing/Accounting apps are available.
Respond with strict JSON of the shape {"models": ["model.name", ...]} and nothing else.
If the question needs data outside Invoicing/Accounting, still answer with your best guess of the models involved.
Examples:
Question about customers -> {"models": ["res.partner"]}
Question about invoices -> {"models": ["account.move"]}
Question about payments -> {"models": ["account.payment"]}`

// domainPrompt asks the model for a single filter expression over one
// entity. Relative dates use a minimal expression language exposing only
// the current time.
const domainPrompt = `You are a tool that converts a natural language question into an Odoo-style domain filter for a single model.
Respond with strict JSON of the shape {"domain": "[('field', 'op', value), ...]"} and nothing else.
Rules:
- Use only the fields provided for the model.
- Allowed operators: =, !=, >, <, >=, <=, in, not in, like, ilike.
- String values are single quoted. Lists use [a, b, c].
- For relative dates use the variable now and duration literals, for example: ('date', '>=', now - duration('720h')).
- An unfiltered listing is the empty domain: {"domain": "[]"}.
- Never use any write, delete or code execution constructs.`

// sqlPrompt asks the model for one SELECT statement over the provided
// tables. Table names use underscores (account.move -> account_move).
const sqlPrompt = `You are a tool that converts a natural language question into a single read-only SQL SELECT statement.
Respond with only the SQL statement, no explanation and no code fence.
Rules:
- Query only the tables and columns provided.
- Table names use underscores, for example account_move for account.move.
- One statement only. SELECT only. Never write, alter or drop anything.`
