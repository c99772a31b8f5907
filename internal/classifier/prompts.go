package classifier

const classifySystemPrompt = `You will be given a stack trace of an error and its associated code snippet in Python.
If the error is simple and solvable by your current knowledge without available documentation in enum,
return "DocReq" with false and the other parameters with null.
Else, return the required library documentation as an enum in "Library"
and generate a compact (at most 8 words) phrase for similarity search in the parameter "SearchPhrase".
Respond with a single JSON object: {"DocReq": bool, "Library": string|null, "SearchPhrase": string|null}.`

const refineSystemPrompt = `You now have additional documents. Use them to refine your solution only if they are of use.
Return the best fix or explanation. If the documents are used, provide metadata information about them,
else purely return the solution.`

const documentPrompt = "Here is the additional document: %s. Contents: %s"
