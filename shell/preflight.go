package shell

import (
	"github.com/valyala/fasttemplate"
)

// Report lists each collaborator program and whether it is on $PATH. Programs
// marked '*' are always required; bgzip/tabix/bcftools are only exercised by
// run-length models or the variant output path.
func Report() string {
	tmpl := `
medaka_consensus calls several programs. Those with 'Y' are found on
your $PATH. Only those with '*' are required for every run.

  [{{medaka}}] medaka*
  [{{mini_align}}] mini_align*
  [{{bgzip}}] bgzip [compress basecalls/draft and vcf output]
  [{{tabix}}] tabix [index vcf output (-v only)]
  [{{bcftools}}] bcftools [apply vcf to draft (-v only)]
`
	t := fasttemplate.New(tmpl, "{{", "}}")

	vars := make(map[string]interface{})
	for _, p := range []string{"medaka", "mini_align", "bgzip", "tabix", "bcftools"} {
		if Available(p) {
			vars[p] = "Y"
		} else {
			vars[p] = " "
		}
	}

	return t.ExecuteString(vars)
}
