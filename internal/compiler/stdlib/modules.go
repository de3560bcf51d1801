package stdlib

// ioModule exposes buffered read/write and console-style output, backed
// by the runtime's io helpers rather than raw Node builtins, so the
// emitted program depends on one host surface (agc/runtime/*) instead of
// scattering Node-specific imports across generated code.
const ioModule = `
@js("agc/runtime/io", name = "readFile")
extern fn readFile(path: string) -> Promise<string>;

@js("agc/runtime/io", name = "writeFile")
extern fn writeFile(path: string, contents: string) -> Promise<void>;

@js("agc/runtime/io", name = "println")
extern fn println(message: string) -> void;

@js("agc/runtime/io", name = "print")
extern fn print(message: string) -> void;
`

// collectionsModule exposes a small set of container helpers beyond what
// arrays and maps already give the surface language for free.
const collectionsModule = `
@js("agc/runtime/collections", name = "Queue")
extern struct Queue {
  fn push(item: any) -> void,
  fn pop() -> any,
  fn isEmpty() -> bool,
}

@js("agc/runtime/collections", name = "uniq")
extern fn uniq(items: [any]) -> [any];

@js("agc/runtime/collections", name = "groupBy")
extern fn groupBy(items: [any], key: string) -> map<string, [any]>;
`

// mathModule exposes numeric helpers the surface language has no
// operator for.
const mathModule = `
@js("agc/runtime/math", name = "clamp")
extern fn clamp(value: float, lo: float, hi: float) -> float;

@js("agc/runtime/math", name = "round")
extern fn round(value: float) -> int;

@js("agc/runtime/math", name = "pi")
extern fn pi() -> float;
`
