package mcpserver

// DatasetLayoutContract describes the directory layout that LLM
// consumers should assume when reading or extending a dataset.
const DatasetLayoutContract = `# Dataset Layout Contract

Every dataset directory managed by sdskit follows this structure.

## Structure

` + "```" + `text
<dataset root>/
  dataset_description.xlsx   # dataset-level metadata elements, one per row
  subjects.xlsx              # one row per subject
  samples.xlsx               # one row per sample
  manifest.xlsx              # one row per data file (may also be .csv or .json)
  submission.xlsx            # submission metadata
  code_description.xlsx      # computational provenance
  primary/
    sub-<id>/
      sam-<id>/              # raw data files for one sample
  derivative/
    sub-<id>/
      sam-<id>/              # processed counterparts of primary data
  docs/                      # thumbnails and supporting documents
` + "```" + `

## Rules

1. **Data files live under** ` + "`" + `primary/` + "`" + `, ` + "`" + `derivative/` + "`" + ` **or** ` + "`" + `docs/` + "`" + `, never at the
   dataset root. Everything else at the root is metadata.
2. **The manifest has exactly four columns:** ` + "`" + `filename` + "`" + `, ` + "`" + `description` + "`" + `,
   ` + "`" + `timestamp` + "`" + `, ` + "`" + `file type` + "`" + `. ` + "`" + `filename` + "`" + ` is the forward-slash path of the file
   relative to the dataset root.
3. **Metadata workbooks keep their header row.** Cell values start at
   spreadsheet row 2; the ` + "`" + `set_field` + "`" + ` tool uses those spreadsheet row
   numbers.
4. **Sample folders stay flat.** A sample directory holds files or one level
   of plain directories; sources containing nested directories are skipped.
5. **Subject and sample counts** in ` + "`" + `dataset_description` + "`" + ` are maintained by
   the tooling. Do not set them by hand.
6. **Add data through the** ` + "`" + `add_data_file` + "`" + ` **tool** rather than writing
   paths directly, so the manifest row is created alongside the file.

## Example

` + "```" + `text
dataset/
  dataset_description.xlsx
  subjects.xlsx
  samples.xlsx
  manifest.xlsx
  primary/
    sub-1/
      sam-1/
        recording.csv
  docs/
    cover.png
` + "```" + `
`
