package mcpserver

// NoteFormatContract describes the canonical note format that LLM consumers
// should follow when creating or updating notes.
const NoteFormatContract = `# slipbox Note Format Contract

Every note is a UTF-8 Markdown file with a TOML header between two ` + "`+++`" + ` lines.

## Structure

` + "```" + `markdown
+++
title = 'Human-readable title'   # REQUIRED, used in search and listings
date = 2025-01-15                # OPTIONAL, creation date (YYYY-MM-DD)
+++

Body text in standard Markdown.

Link other notes with [display text](@/notes/20250115093000123.md).
` + "```" + `

## Rules

1. **The header comes first.** The opening ` + "`+++`" + ` must be the very first line and the
   header must be closed by a second ` + "`+++`" + ` line. A note with a broken header is
   not loaded.
2. **` + "`title`" + ` is required.** It is the only searchable field.
3. **Identifiers** are the file path relative to the note root, prefixed with ` + "`@/`" + `
   (e.g. ` + "`@/notes/20250115093000123.md`" + `). ` + "`create_note`" + ` picks the path for you.
4. **Links** are ordinary Markdown links whose destination is an identifier.
   Only links starting with ` + "`@/`" + ` count as note links and produce backlinks.
5. **Tool bodies exclude the header.** ` + "`update_note`" + ` takes the title and the body
   separately; the header is written for you.
6. **Concurrency:** pass the ` + "`checksum`" + ` returned by ` + "`read_note`" + ` to ` + "`update_note`" + `.
   A mismatch means someone else changed the note; read it again before retrying.

## Assets & Images

- Upload assets via the ` + "`upload_asset`" + ` tool. It returns a ` + "`markdownImage`" + ` field ready to paste into the note body.
- Assets are stored in the shared ` + "`attachments/`" + ` directory (flat, no sub-folders).
- Reference them by identifier: ` + "`![description](@/attachments/filename.png)`" + `
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.

## Example

` + "```" + `markdown
+++
title = 'Weekly standup 2025-01-20'
date = 2025-01-20
+++

Attendees: Alice, Bob.

![Whiteboard photo](@/attachments/standup-2025-01-20.jpg)

- Alice to review the [design doc](@/notes/20250110081500000.md)
- Bob to update [the roadmap](@/notes/20241201120000000.md)
` + "```" + `
`
