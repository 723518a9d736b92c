package device

import (
	"fmt"
	"os"
	"strings"
)

// kernelEntryPoint is the OpenCL kernel function the GPU backend runs.
const kernelEntryPoint = "generate_pubkey"

// LoadKernelSource reads the OpenCL kernel from path and normalizes it
// for non-NVIDIA toolchains. The kernel was written against NVIDIA's
// permissive compiler; AMD and Intel reject its __generic address-space
// qualifiers and its fixed-size field-element array parameters, so both
// are rewritten to the portable form before the program is built.
func LoadKernelSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("device: reading kernel source: %w", err)
	}
	src := string(data)

	src = strings.ReplaceAll(src, "#define __generic\r\n", "")
	src = strings.ReplaceAll(src, "#define __generic\n", "")
	src = strings.ReplaceAll(src, "__generic ", "")
	src = strings.ReplaceAll(src, " __generic", "")

	for _, sig := range [][2]string{
		{"void fe_0(fe h)", "void fe_0(int* h)"},
		{"void fe_1(fe h)", "void fe_1(int* h)"},
		{"void fe_copy(fe h, const fe f)", "void fe_copy(int* h, const int* f)"},
		{"void fe_add(fe h, const fe f, const fe g)", "void fe_add(int* h, const int* f, const int* g)"},
		{"void fe_sub(fe h, const fe f, const fe g)", "void fe_sub(int* h, const int* f, const int* g)"},
		{"void fe_mul(fe h, const fe f, const fe g)", "void fe_mul(int* h, const int* f, const int* g)"},
		{"void fe_sq(fe h, const fe f)", "void fe_sq(int* h, const int* f)"},
		{"void fe_sq2(fe h, const fe f)", "void fe_sq2(int* h, const int* f)"},
		{"void fe_invert(fe out, const fe z)", "void fe_invert(int* out, const int* z)"},
		{"void fe_neg(fe h, const fe f)", "void fe_neg(int* h, const int* f)"},
		{"void fe_cmov(fe f, const fe g, unsigned int b)", "void fe_cmov(int* f, const int* g, unsigned int b)"},
		{"void fe_cmov__constant(fe f, constant fe g, unsigned int b)", "void fe_cmov__constant(int* f, constant int* g, unsigned int b)"},
		{"void fe_tobytes(unsigned char *s, const fe h)", "void fe_tobytes(unsigned char *s, const int* h)"},
		{"unsigned int fe_isnegative(const fe f)", "unsigned int fe_isnegative(const int* f)"},
		{"void fe_pow22523(fe out, const fe z)", "void fe_pow22523(int* out, const int* z)"},
	} {
		src = strings.ReplaceAll(src, sig[0], sig[1])
	}

	return src, nil
}
